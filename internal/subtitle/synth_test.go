package subtitle

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_ClipScenario(t *testing.T) {
	track := Synthesize("Bonjour\nMonde", 30.0)

	require.Len(t, track.Lines, 2)
	assert.Equal(t, Line{Index: 1, StartTime: 0, EndTime: 15 * time.Second, Text: "Bonjour"}, track.Lines[0])
	assert.Equal(t, Line{Index: 2, StartTime: 15 * time.Second, EndTime: 30 * time.Second, Text: "Monde"}, track.Lines[1])
	assert.Equal(t, "SRT", track.Format)
}

func TestSynthesize_Partition(t *testing.T) {
	durations := []float64{0.001, 1, 2.5, 7, 30, 59.999, 61.37, 3600.123, 7321.9}
	counts := []int{1, 2, 3, 7, 10, 33, 101}

	for _, d := range durations {
		for _, n := range counts {
			t.Run(fmt.Sprintf("%gs/%d", d, n), func(t *testing.T) {
				texts := make([]string, n)
				for i := range texts {
					texts[i] = fmt.Sprintf("line %d", i+1)
				}
				total := time.Duration(math.Round(d * float64(time.Second)))

				track := Synthesize(strings.Join(texts, "\n"), d)

				require.Len(t, track.Lines, n)
				for i, cue := range track.Lines {
					assert.Equal(t, i+1, cue.Index)
					assert.Equal(t, texts[i], cue.Text)
					assert.LessOrEqual(t, cue.StartTime, cue.EndTime)
					assert.LessOrEqual(t, cue.EndTime, total)
					if i+1 < n {
						assert.Equal(t, cue.EndTime, track.Lines[i+1].StartTime)
					}
				}
				assert.Equal(t, time.Duration(0), track.Lines[0].StartTime)
				assert.Equal(t, total, track.Lines[n-1].EndTime)
			})
		}
	}
}

func TestSynthesize_UniformWidth(t *testing.T) {
	track := Synthesize("a\nb\nc\nd", 8)

	require.Len(t, track.Lines, 4)
	for i, cue := range track.Lines {
		assert.Equal(t, time.Duration(i)*2*time.Second, cue.StartTime)
		assert.Equal(t, 2*time.Second, cue.EndTime-cue.StartTime)
	}
}

func TestSynthesize_BlankLinesGetNoSlice(t *testing.T) {
	track := Synthesize("Bonjour\n\nMonde", 30)

	require.Len(t, track.Lines, 2)
	assert.Equal(t, "Bonjour", track.Lines[0].Text)
	assert.Equal(t, 15*time.Second, track.Lines[0].EndTime)
	assert.Equal(t, "Monde", track.Lines[1].Text)
	assert.Equal(t, 15*time.Second, track.Lines[1].StartTime)
	assert.Equal(t, 30*time.Second, track.Lines[1].EndTime)
}

func TestSynthesize_Degenerate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		duration float64
		want     int
	}{
		{name: "empty text", text: "", duration: 30, want: 0},
		{name: "only whitespace", text: " \n\t\n  ", duration: 30, want: 0},
		{name: "zero duration", text: "a\nb", duration: 0, want: 2},
		{name: "negative duration", text: "a", duration: -5, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := Synthesize(tt.text, tt.duration)
			require.Len(t, track.Lines, tt.want)
			for _, cue := range track.Lines {
				assert.Equal(t, time.Duration(0), cue.StartTime)
				assert.Equal(t, time.Duration(0), cue.EndTime)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"Hola", "Mundo"}, SplitLines("Hola\r\nMundo\r\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("\n a \n\n b\r"))
	assert.Empty(t, SplitLines(""))
}

func TestRoundTrip(t *testing.T) {
	track := Synthesize("Erste Zeile\nZweite Zeile\nDritte Zeile", 61.37)

	data, err := Marshal(track)
	require.NoError(t, err)

	parsed, err := ReadSRTBytes(data, "memory://roundtrip")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, len(track.Lines))
	for i := range track.Lines {
		assert.Equal(t, track.Lines[i].Index, parsed.Lines[i].Index)
		assert.Equal(t, track.Lines[i].Text, parsed.Lines[i].Text)
		assert.Equal(t, track.Lines[i].StartTime.Truncate(time.Millisecond), parsed.Lines[i].StartTime)
		assert.Equal(t, track.Lines[i].EndTime.Truncate(time.Millisecond), parsed.Lines[i].EndTime)
	}
}
