package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"time"
)

// Encode serializes the track as SRT: index, time range, text and a blank
// separator line per cue.
func Encode(w io.Writer, subtitle *File) error {
	if subtitle == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	writer := bufio.NewWriter(w)
	for _, line := range subtitle.Lines {
		if _, err := fmt.Fprintf(writer, "%d\n%s --> %s\n%s\n\n",
			line.Index,
			formatDuration(line.StartTime),
			formatDuration(line.EndTime),
			line.Text,
		); err != nil {
			return fmt.Errorf("failed to write subtitle line %d: %w", line.Index, err)
		}
	}
	return writer.Flush()
}

// Marshal returns the SRT encoding of the track.
func Marshal(subtitle *File) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, subtitle); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatDuration formats time.Duration to SRT time format
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
