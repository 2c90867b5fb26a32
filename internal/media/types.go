package media

import "context"

// Transcoder probes and transcodes media files.
type Transcoder interface {
	// ProbeDuration returns the container duration in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
	// ExtractAudio writes a mono 16 kHz 16-bit PCM WAV track of src to dest.
	ExtractAudio(ctx context.Context, src string, dest string) error
}

// NewTranscoder returns the ffmpeg backed Transcoder. An empty binDir
// resolves the binaries from PATH.
func NewTranscoder(binDir string) Transcoder {
	return NewFfmpeg(binDir)
}
