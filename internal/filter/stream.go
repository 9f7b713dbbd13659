package filter

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// Stream is an io.WriteCloser that filters whatever text is written to it.
//
// Writes may split lines anywhere; a line is filtered once its "\n" arrives.
// Close filters a final unterminated line and flushes all output. A Stream is
// not safe for concurrent use.
type Stream struct {
	f       *LineFilter
	in      io.Writer         // where Write sends raw bytes
	decoder *transform.Writer // raw bytes to UTF-8, nil for UTF-8 input
	encoder *transform.Writer // UTF-8 to output charset, nil for UTF-8 output
	out     io.Writer         // filtered UTF-8 lines go here
	buf     *bufio.Writer
	pending []byte
	stats   Stats
	err     error
	closed  bool
}

// NewStream returns a Stream writing filtered output to w.
func (f *LineFilter) NewStream(w io.Writer) *Stream {
	s := &Stream{f: f, buf: bufio.NewWriter(w)}
	s.out = s.buf
	s.in = lineSink{s}

	if f.enc != nil {
		s.encoder = transform.NewWriter(s.buf, f.enc.NewEncoder())
		s.out = s.encoder
		s.decoder = transform.NewWriter(lineSink{s}, f.enc.NewDecoder())
		s.in = s.decoder
	}
	return s
}

// lineSink receives decoded text.
type lineSink struct{ s *Stream }

func (l lineSink) Write(p []byte) (int, error) {
	return len(p), l.s.push(p)
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := s.in.Write(p)
	if err != nil && s.err == nil {
		s.err = err
	}
	return n, err
}

func (s *Stream) push(p []byte) error {
	if s.err != nil {
		return s.err
	}
	s.pending = append(s.pending, p...)

	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			return nil
		}
		if err := s.emit(s.pending[:i+1]); err != nil {
			s.err = err
			return err
		}
		s.pending = s.pending[i+1:]
	}
}

func (s *Stream) emit(raw []byte) error {
	s.stats.LinesRead++
	if !validText(raw, s.f.enc != nil) {
		return &DecodeError{Line: s.stats.LinesRead}
	}
	if bytes.HasSuffix(raw, []byte("\r\n")) {
		s.stats.CRLF++
	}

	line, keep, n := s.f.apply(string(raw))
	s.stats.Artifacts += n
	if !keep {
		s.stats.LinesDropped++
		return nil
	}
	s.stats.LinesWritten++
	_, err := io.WriteString(s.out, line)
	return err
}

// validText reports whether raw is usable text. Decoders replace bytes they
// cannot map with U+FFFD instead of failing, so decoded text must not hold it.
func validText(raw []byte, decoded bool) bool {
	if decoded {
		return !bytes.ContainsRune(raw, utf8.RuneError)
	}
	return utf8.Valid(raw)
}

// Flush writes any buffered output to the underlying writer. A partial line
// still waiting for its terminator is not flushed.
func (s *Stream) Flush() error {
	return s.buf.Flush()
}

// Close filters the remaining unterminated line, if any, and flushes.
// Output produced before an earlier error is still flushed.
func (s *Stream) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true

	if s.decoder != nil && s.err == nil {
		if err := s.decoder.Close(); err != nil {
			s.err = err
		}
	}
	if s.err == nil && len(s.pending) > 0 {
		if err := s.emit(s.pending); err != nil {
			s.err = err
		}
		s.pending = nil
	}

	if s.encoder != nil {
		if err := s.encoder.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	if err := s.buf.Flush(); err != nil && s.err == nil {
		s.err = err
	}
	return s.err
}

// Stats returns the counters accumulated so far.
func (s *Stream) Stats() Stats {
	return s.stats
}
