package subtitle

import (
	"time"

	"golang.org/x/text/language"
)

// Reader is the interface for reading subtitle files
type Reader interface {
	Read() (*File, error)
}

// Line is a single timed cue
type Line struct {
	Index     int           // 1-based cue index
	StartTime time.Duration // start time
	EndTime   time.Duration // end time
	Text      string        // cue text
}

// File is an ordered subtitle track
type File struct {
	Lines    []Line
	Language language.Tag
	Format   string // e.g. SRT
	Path     string
}

// Duration returns the end time of the last cue.
func (f *File) Duration() time.Duration {
	if f == nil || len(f.Lines) == 0 {
		return 0
	}
	return f.Lines[len(f.Lines)-1].EndTime
}
