package file

import (
	"path/filepath"
	"strings"
)

// Stem returns the base name of path without its final extension.
// Dot files such as ".mp4" keep their full name.
func Stem(path string) string {
	name := filepath.Base(path)
	lastDot := strings.LastIndex(name, ".")
	if lastDot <= 0 {
		return name
	}
	return name[:lastDot]
}

// HasExt reports whether path ends with one of exts, ignoring case.
// Entries in exts may be given with or without the leading dot.
func HasExt(path string, exts []string) bool {
	got := strings.ToLower(filepath.Ext(path))
	if got == "" {
		return false
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if got == ext {
			return true
		}
	}
	return false
}
