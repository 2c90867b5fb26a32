package persistence

import "time"

// TranslationRecord is one persisted translation of a video into a language.
// Records are append-only; the same (video, language) pair may appear more
// than once.
type TranslationRecord struct {
	ID           int64
	VideoName    string
	Language     string
	Translation  string
	ArtifactPath string
	CreatedAt    time.Time
}
