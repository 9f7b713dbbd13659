package tail

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe to read while the follower writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Helper function to create a temporary log file
func createTempLogFile(t *testing.T, content string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "capture.log")
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return filePath
}

func appendToFile(t *testing.T, filePath, content string) {
	t.Helper()
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open file for append: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
}

func startFollower(t *testing.T, opts Options) (*Follower, context.CancelFunc, <-chan error) {
	t.Helper()
	follower := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- follower.Run(ctx)
	}()
	return follower, cancel, errCh
}

func waitDone(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Follower did not stop within timeout")
		return nil
	}
}

func TestFollower_FiltersExistingAndAppendedContent(t *testing.T) {
	filePath := createTempLogFile(t, "Track 0?\n12s \n")

	out := &syncBuffer{}
	follower, cancel, errCh := startFollower(t, Options{
		FilePath: filePath,
		Output:   out,
	})

	require.Eventually(t, func() bool {
		return out.String() == "Track 0\n"
	}, 2*time.Second, 20*time.Millisecond)

	appendToFile(t, filePath, "<1a> sec=1 [good ID CRC] \n#fb e5(+1)\n")

	require.Eventually(t, func() bool {
		return out.String() == "Track 0\nsec=1 [good ID CRC] #fb e5\n"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, waitDone(t, errCh))

	stats := follower.Stats()
	assert.Equal(t, 4, stats.LinesRead)
	assert.Equal(t, 1, stats.LinesDropped)
}

func TestFollower_HoldsPartialLine(t *testing.T) {
	filePath := createTempLogFile(t, "")

	out := &syncBuffer{}
	_, cancel, errCh := startFollower(t, Options{
		FilePath: filePath,
		Output:   out,
	})

	// Give the watcher a moment to start
	time.Sleep(100 * time.Millisecond)
	appendToFile(t, filePath, "done\npart")

	require.Eventually(t, func() bool {
		return out.String() == "done\n"
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "done\n", out.String(), "partial line is held back")

	cancel()
	require.NoError(t, waitDone(t, errCh))
	assert.Equal(t, "done\npart", out.String(), "partial line is flushed on stop")
}

func TestFollower_Truncation(t *testing.T) {
	filePath := createTempLogFile(t, "done\nstale partial")

	out := &syncBuffer{}
	_, cancel, errCh := startFollower(t, Options{
		FilePath: filePath,
		Output:   out,
	})

	require.Eventually(t, func() bool {
		return out.String() == "done\n"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filePath, []byte("new\n"), 0644))

	require.Eventually(t, func() bool {
		return out.String() == "done\nnew\n"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, waitDone(t, errCh))
	assert.Equal(t, "done\nnew\n", out.String(), "the partial line from before the truncation is dropped")
}

func TestFollower_RewriteToLongerContent(t *testing.T) {
	filePath := createTempLogFile(t, "aaaa\n")

	out := &syncBuffer{}
	_, cancel, errCh := startFollower(t, Options{
		FilePath: filePath,
		Output:   out,
	})

	require.Eventually(t, func() bool {
		return out.String() == "aaaa\n"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filePath, []byte("bbbbbbb?\n"), 0644))

	require.Eventually(t, func() bool {
		return out.String() == "aaaa\nbbbbbbb\n"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, waitDone(t, errCh))
}

func TestFollower_RotationStops(t *testing.T) {
	filePath := createTempLogFile(t, "line?\n")

	out := &syncBuffer{}
	_, _, errCh := startFollower(t, Options{
		FilePath: filePath,
		Output:   out,
	})

	require.Eventually(t, func() bool {
		return out.String() == "line\n"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filePath))

	err := waitDone(t, errCh)
	assert.True(t, errors.Is(err, ErrRotated), "got %v", err)
}

func TestFollower_FollowRotate(t *testing.T) {
	filePath := createTempLogFile(t, "old?\n")

	out := &syncBuffer{}
	_, cancel, errCh := startFollower(t, Options{
		FilePath:     filePath,
		FollowRotate: true,
		Output:       out,
	})

	require.Eventually(t, func() bool {
		return out.String() == "old\n"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Rename(filePath, filePath+".1"))
	require.NoError(t, os.WriteFile(filePath, []byte("(-2)new\n"), 0644))

	require.Eventually(t, func() bool {
		return out.String() == "old\nnew\n"
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, waitDone(t, errCh))
}

func TestFollower_MissingFile(t *testing.T) {
	follower := New(Options{
		FilePath: filepath.Join(t.TempDir(), "missing.log"),
		Output:   &syncBuffer{},
	})

	err := follower.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
