package transcription

import "context"

// Audio is an encoded audio payload handed to a Transcriber.
type Audio struct {
	// Name is the file name reported to the service; its extension tells
	// the service how to decode Data.
	Name string
	Data []byte
}

// Transcriber turns speech audio into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
