// Package filter turns a level 5-7 cw2dmk log into its level-4 equivalent.
//
// Higher cw2dmk verbosity levels interleave extra tokens into lines that are
// otherwise identical to a level-4 capture: timing and retry annotations
// ("12s 3m "), identifier annotations ("<1a2b> "), offset annotations ("(+3)")
// and uncertain-read markers ("?"). A LineFilter deletes those tokens line by
// line, normalizes CRLF endings and drops lines that held nothing else.
//
// Basic usage:
//
//	f := filter.New()
//	stats, err := f.Filter(os.Stdin, os.Stdout)
//
// For data that arrives in chunks, such as a log that is still being written,
// use a Stream:
//
//	s := f.NewStream(os.Stdout)
//	_, _ = s.Write(chunk)
//	_ = s.Close()
package filter
