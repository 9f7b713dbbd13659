package convert

import (
	"path/filepath"
	"strings"
)

// SplitExt splits path into root and extension so that root+ext == path.
// The extension starts at the last dot of the final path element; leading
// dots of that element do not count, so ".hidden" has no extension.
func SplitExt(path string) (root, ext string) {
	dir, file := filepath.Split(path)
	trimmed := strings.TrimLeft(file, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return path, ""
	}
	i += len(file) - len(trimmed)
	return dir + file[:i], file[i:]
}

// OutputName derives the output file name for input by inserting suffix
// before its extension: "capture.log" becomes "capture-l4.log".
func OutputName(input, suffix string) string {
	root, ext := SplitExt(input)
	return root + suffix + ext
}
