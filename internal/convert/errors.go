package convert

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies why a file could not be converted.
type ErrorKind int

const (
	KindInput        ErrorKind = iota // input missing or unreadable
	KindOutputExists                  // derived output name already taken
	KindOutput                        // output could not be created or written
	KindDecode                        // input is not valid text
)

// String returns a short description of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "cannot read input"
	case KindOutputExists:
		return "output already exists"
	case KindOutput:
		return "cannot write output"
	case KindDecode:
		return "invalid text in input"
	default:
		return "conversion failed"
	}
}

// FileError reports a failure converting one file. Path names the offending
// file: the input for KindInput and KindDecode, the output otherwise.
type FileError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *FileError) Error() string {
	err := e.Err
	// The path is already in the message.
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchError collects the failures of a run that kept going past them.
type BatchError struct {
	Total int
	Errs  []error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d files failed", len(e.Errs), e.Total)
}

func (e *BatchError) Unwrap() []error {
	return e.Errs
}
