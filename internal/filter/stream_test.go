package filter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_SplitWrites(t *testing.T) {
	input := "first?\r\n12s \n[good ID CRC] \nsecond(-4)\nlast"

	var out bytes.Buffer
	s := New().NewStream(&out)
	for i := 0; i < len(input); i++ {
		_, err := s.Write([]byte{input[i]})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	assert.Equal(t, "first\n[good ID CRC] second\nlast", out.String())
	assert.Equal(t, 5, s.Stats().LinesRead)
	assert.Equal(t, 1, s.Stats().LinesDropped)
}

func TestStream_FlushHoldsPartialLine(t *testing.T) {
	var out bytes.Buffer
	s := New().NewStream(&out)

	_, err := s.Write([]byte("done?\npart"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	assert.Equal(t, "done\n", out.String())

	_, err = s.Write([]byte("ial(+1)\n"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	assert.Equal(t, "done\npartial\n", out.String())
	assert.Equal(t, 2, s.Stats().LinesRead)
}

func TestStream_WriteAfterClose(t *testing.T) {
	var out bytes.Buffer
	s := New().NewStream(&out)
	require.NoError(t, s.Close())

	_, err := s.Write([]byte("x\n"))
	assert.Error(t, err)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestStream_StickyError(t *testing.T) {
	var out bytes.Buffer
	s := New().NewStream(&out)

	_, err := s.Write([]byte("\xc3\x28\n"))
	require.ErrorIs(t, err, ErrInvalidText)

	_, err = s.Write([]byte("fine\n"))
	assert.ErrorIs(t, err, ErrInvalidText)
	assert.ErrorIs(t, s.Close(), ErrInvalidText)
	assert.Empty(t, out.String())
}
