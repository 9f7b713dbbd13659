package filter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
)

// crcTerminal ends a line that cw2dmk continues on the next line at level 4.
const crcTerminal = "ID CRC] \n"

// ErrInvalidText is returned when input is not valid text in the configured encoding.
var ErrInvalidText = errors.New("invalid text")

// DecodeError reports the input line that could not be decoded.
type DecodeError struct {
	Line int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, ErrInvalidText)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidText
}

// Stats counts what a filtering pass did.
type Stats struct {
	LinesRead    int `json:"lines_read"`
	LinesWritten int `json:"lines_written"`
	LinesDropped int `json:"lines_dropped"`
	Artifacts    int `json:"artifacts_removed"`
	CRLF         int `json:"crlf_normalized"`
}

// Add returns the sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		LinesRead:    s.LinesRead + o.LinesRead,
		LinesWritten: s.LinesWritten + o.LinesWritten,
		LinesDropped: s.LinesDropped + o.LinesDropped,
		Artifacts:    s.Artifacts + o.Artifacts,
		CRLF:         s.CRLF + o.CRLF,
	}
}

// LineFilter rewrites level 5-7 log lines into their level-4 form.
// A LineFilter holds no per-stream state and may be reused.
type LineFilter struct {
	patterns *PatternSet
	enc      encoding.Encoding
}

// Option configures a LineFilter.
type Option func(*LineFilter)

// WithEncoding sets the character set of both input and output. A nil
// encoding means strict UTF-8.
func WithEncoding(enc encoding.Encoding) Option {
	return func(f *LineFilter) {
		f.enc = enc
	}
}

// New creates a LineFilter that removes every built-in artifact pattern.
func New(opts ...Option) *LineFilter {
	f := &LineFilter{
		patterns: NewPatternSet(BuiltInPatterns...),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Apply filters a single line, including its "\n" terminator if it has one.
// It returns false when the line must be dropped from the output.
func (f *LineFilter) Apply(line string) (string, bool) {
	out, keep, _ := f.apply(line)
	return out, keep
}

func (f *LineFilter) apply(line string) (out string, keep bool, artifacts int) {
	if strings.HasSuffix(line, "\r\n") {
		line = line[:len(line)-2] + "\n"
	}

	// A blank line stays blank.
	if line == "\n" {
		return line, true, 0
	}

	line, artifacts = f.patterns.RemoveAndCount(line)
	if strings.HasSuffix(line, crcTerminal) {
		line = line[:len(line)-1]
	}

	if line == "\n" || line == "" {
		return "", false, artifacts
	}
	return line, true, artifacts
}

// Filter reads r to the end, writing the level-4 equivalent to w. Output
// already produced is flushed to w even when an error stops the pass.
func (f *LineFilter) Filter(r io.Reader, w io.Writer) (Stats, error) {
	s := f.NewStream(w)
	_, copyErr := io.Copy(s, r)
	closeErr := s.Close()
	if copyErr != nil {
		return s.Stats(), copyErr
	}
	return s.Stats(), closeErr
}
