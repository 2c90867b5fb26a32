package subtitle

import (
	"math"
	"strings"
	"time"
)

// SplitLines breaks a translated text block into cue texts. Line endings are
// normalized and blank lines are dropped, since a cue needs a non-empty text
// line to be represented in SRT.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	ret := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ret = append(ret, line)
	}
	return ret
}

// Synthesize spreads the lines of text uniformly over totalSeconds: every
// line gets totalSeconds/len(lines), in order, with no gaps. Text without any
// lines yields an empty track.
func Synthesize(text string, totalSeconds float64) *File {
	lines := SplitLines(text)
	ret := &File{
		Lines:  make([]Line, 0, len(lines)),
		Format: "SRT",
	}
	if len(lines) == 0 {
		return ret
	}

	total := secondsToDuration(totalSeconds)
	n := len(lines)

	// boundary(i) is i*total/n; cue i spans [boundary(i), boundary(i+1)]
	boundary := func(i int) time.Duration {
		if i >= n {
			return total
		}
		b := time.Duration(math.Round(float64(total) * float64(i) / float64(n)))
		return min(b, total)
	}

	for i, line := range lines {
		ret.Lines = append(ret.Lines, Line{
			Index:     i + 1,
			StartTime: boundary(i),
			EndTime:   boundary(i + 1),
			Text:      line,
		})
	}
	return ret
}

func secondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	if seconds >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
