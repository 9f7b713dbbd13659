// Package convert drives a LineFilter over standard streams and named files.
//
// Each named file X is filtered into a new file whose name has a suffix
// inserted before the extension (capture.log -> capture-l4.log). The output
// is created exclusively; an existing file is never overwritten.
package convert

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/bimmerbailey/cwl4/internal/filter"
	"github.com/bimmerbailey/cwl4/internal/logger"
)

// Result describes one converted file.
type Result struct {
	Input  string       `json:"input"`
	Output string       `json:"output"`
	Stats  filter.Stats `json:"stats"`
}

// Converter applies a LineFilter to files and streams.
type Converter struct {
	filter *filter.LineFilter
	suffix string
	log    *slog.Logger
}

// New creates a Converter. A nil logger discards log output.
func New(f *filter.LineFilter, suffix string, log *slog.Logger) *Converter {
	if log == nil {
		log = logger.Discard()
	}
	return &Converter{filter: f, suffix: suffix, log: log}
}

// ConvertStream filters r into w. name identifies the stream in errors.
func (c *Converter) ConvertStream(name string, r io.Reader, w io.Writer) (Result, error) {
	res := Result{Input: name}

	stats, err := c.filter.Filter(r, w)
	res.Stats = stats
	if err != nil {
		return res, classify(err, name, name)
	}

	c.log.Info("stream converted",
		"input", name,
		"lines_read", stats.LinesRead,
		"lines_dropped", stats.LinesDropped,
		"artifacts_removed", stats.Artifacts,
	)
	return res, nil
}

// ConvertFile filters the file named input into its derived output file.
// Both files are closed before ConvertFile returns, whatever the outcome.
func (c *Converter) ConvertFile(input string) (res Result, err error) {
	res = Result{Input: input, Output: OutputName(input, c.suffix)}

	in, err := os.Open(input)
	if err != nil {
		return res, &FileError{Path: input, Kind: KindInput, Err: err}
	}
	defer in.Close()

	out, err := os.OpenFile(res.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		kind := KindOutput
		if errors.Is(err, fs.ErrExist) {
			kind = KindOutputExists
		}
		return res, &FileError{Path: res.Output, Kind: kind, Err: err}
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = &FileError{Path: res.Output, Kind: KindOutput, Err: cerr}
		}
	}()

	c.log.Debug("converting file", "input", input, "output", res.Output)

	stats, err := c.filter.Filter(in, out)
	res.Stats = stats
	if err != nil {
		return res, classify(err, input, res.Output)
	}

	c.log.Info("file converted",
		"input", input,
		"output", res.Output,
		"lines_read", stats.LinesRead,
		"lines_dropped", stats.LinesDropped,
		"artifacts_removed", stats.Artifacts,
	)
	return res, nil
}

// ConvertFiles converts the inputs one at a time, in order. Without keepGoing
// the first failure stops the run and is returned as is. With keepGoing every
// input is attempted and the failures are returned as a *BatchError.
func (c *Converter) ConvertFiles(inputs []string, keepGoing bool) ([]Result, error) {
	results := make([]Result, 0, len(inputs))
	var errs []error

	for _, input := range inputs {
		res, err := c.ConvertFile(input)
		if err != nil {
			if !keepGoing {
				return results, err
			}
			c.log.Info("skipping file", "input", input, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}

	if len(errs) > 0 {
		return results, &BatchError{Total: len(inputs), Errs: errs}
	}
	return results, nil
}

// classify maps a filtering error onto the file it concerns.
func classify(err error, input, output string) error {
	if errors.Is(err, filter.ErrInvalidText) {
		return &FileError{Path: input, Kind: KindDecode, Err: err}
	}

	var pe *fs.PathError
	if errors.As(err, &pe) && pe.Op == "read" {
		return &FileError{Path: input, Kind: KindInput, Err: err}
	}
	return &FileError{Path: output, Kind: KindOutput, Err: err}
}
