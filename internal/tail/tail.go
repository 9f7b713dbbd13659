// Package tail follows a cw2dmk log that is still being written and filters
// it as it grows, like "tail -f" piped through the level-4 filter.
//
// The whole file is filtered from the start, then appended data is filtered
// as fsnotify reports writes. A line is only emitted once its terminator has
// been written; a partial line is held back until it is complete or the
// follower stops.
package tail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/bimmerbailey/cwl4/internal/filter"
	"github.com/bimmerbailey/cwl4/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// ErrRotated is returned when the followed file is removed or renamed and
// FollowRotate is not set.
var ErrRotated = errors.New("file rotated")

// Options configures the follower behavior.
type Options struct {
	FilePath      string             // Path to the log file
	FollowRotate  bool               // Whether to follow through log rotations
	RotateTimeout time.Duration      // How long to wait for a rotated file to reappear
	Filter        *filter.LineFilter // Filter applied to every line
	Output        io.Writer          // Destination of filtered lines
	Logger        *slog.Logger
}

// Follower handles following a log file with filtering.
type Follower struct {
	opts    Options
	file    *os.File
	offset  int64
	watcher *fsnotify.Watcher
	stream  *filter.Stream
	stats   filter.Stats
	seen    []byte // last bytes read before offset
}

// seenSize bounds how much already-read data is kept to detect rewrites.
const seenSize = 64

// New creates a new Follower with the given options.
func New(opts Options) *Follower {
	if opts.Filter == nil {
		opts.Filter = filter.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.RotateTimeout <= 0 {
		opts.RotateTimeout = 10 * time.Second
	}
	return &Follower{opts: opts}
}

// Run filters the file and keeps following it. It blocks until the context
// is cancelled or an error occurs. A held-back partial line is filtered and
// written before Run returns.
func (t *Follower) Run(ctx context.Context) (err error) {
	if err := t.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	t.stream = t.opts.Filter.NewStream(t.opts.Output)
	defer func() {
		if cerr := t.finishStream(); cerr != nil && err == nil {
			err = cerr
		}
		t.close()
	}()

	// Watch before the first read so no append slips between the two.
	if err := t.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	if err := t.readNewContent(); err != nil {
		return err
	}

	return t.watch(ctx)
}

// Stats returns the counters accumulated by Run. Call it after Run returns.
func (t *Follower) Stats() filter.Stats {
	if t.stream == nil {
		return t.stats
	}
	return t.stats.Add(t.stream.Stats())
}

// openFile opens the log file from the beginning.
func (t *Follower) openFile() error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		return err
	}
	t.file = f
	t.offset = 0
	t.seen = nil
	return nil
}

// setupWatcher initializes the fsnotify watcher.
func (t *Follower) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	t.watcher = watcher

	return watcher.Add(t.opts.FilePath)
}

// watch monitors the file for changes and outputs new lines.
func (t *Follower) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}

			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// handleEvent processes a file system event.
func (t *Follower) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Has(fsnotify.Write):
		return t.readNewContent()

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename), event.Has(fsnotify.Chmod):
		// Unlinking a file we still hold open may only report a Chmod, and
		// a stale Remove can arrive for a file already rotated away.
		if t.replaced() {
			return t.handleRotation(ctx)
		}
	}

	return nil
}

// replaced reports whether the path no longer names the file being read.
func (t *Follower) replaced() bool {
	if t.file == nil {
		return false
	}
	cur, err := os.Stat(t.opts.FilePath)
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}
	held, err := t.file.Stat()
	if err != nil {
		return false
	}
	return !os.SameFile(cur, held)
}

// readNewContent filters everything between the last known offset and the
// end of the file.
func (t *Follower) readNewContent() error {
	if t.file == nil || t.stream == nil {
		return nil
	}

	stat, err := t.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < t.offset || !t.unchanged() {
		t.opts.Logger.Warn("file truncated, restarting from the beginning",
			"path", t.opts.FilePath, "size", stat.Size(), "offset", t.offset)
		t.restartStream()
	}

	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	n, err := io.Copy(t.stream, t.file)
	t.offset += n
	if err != nil {
		return err
	}
	if err := t.stream.Flush(); err != nil {
		return err
	}
	return t.remember()
}

// unchanged reports whether the bytes just before offset are still the ones
// read last time. A file rewritten to at least its old length keeps its size
// but not its content.
func (t *Follower) unchanged() bool {
	if len(t.seen) == 0 {
		return true
	}
	buf := make([]byte, len(t.seen))
	if _, err := t.file.ReadAt(buf, t.offset-int64(len(buf))); err != nil {
		return false
	}
	return bytes.Equal(buf, t.seen)
}

// remember keeps the tail of what has been read so far.
func (t *Follower) remember() error {
	n := min(t.offset, seenSize)
	t.seen = make([]byte, n)
	if n == 0 {
		return nil
	}
	_, err := t.file.ReadAt(t.seen, t.offset-n)
	return err
}

// restartStream drops the partial line held from the old content and starts
// filtering again from the top of the file. Output already emitted stays.
func (t *Follower) restartStream() {
	t.stats = t.stats.Add(t.stream.Stats())
	t.stream = t.opts.Filter.NewStream(t.opts.Output)
	t.offset = 0
	t.seen = nil
}

// handleRotation handles log file rotation.
func (t *Follower) handleRotation(ctx context.Context) error {
	if !t.opts.FollowRotate {
		return ErrRotated
	}

	// The old file's partial last line is complete as far as it goes.
	if err := t.finishStream(); err != nil {
		return err
	}
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	timeout := time.After(t.opts.RotateTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			if err := t.openFile(); err != nil {
				continue
			}

			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}

			t.opts.Logger.Info("file rotated, following new file", "path", t.opts.FilePath)
			t.stream = t.opts.Filter.NewStream(t.opts.Output)
			return t.readNewContent()
		}
	}
}

// finishStream closes the current stream and folds its counters into the totals.
func (t *Follower) finishStream() error {
	if t.stream == nil {
		return nil
	}
	err := t.stream.Close()
	t.stats = t.stats.Add(t.stream.Stats())
	t.stream = nil
	return err
}

// close closes all resources.
func (t *Follower) close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
}
