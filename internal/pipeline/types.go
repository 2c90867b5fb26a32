package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/MimeLyc/media-subtitle-translator/internal/persistence"
)

// DefaultAllowedExtensions are the upload extensions accepted when none are
// configured.
var DefaultAllowedExtensions = []string{".mp3", ".wav", ".m4a", ".mp4", ".avi", ".mov"}

// Config holds the orchestrator settings.
type Config struct {
	// TempDir receives per-job upload and audio files.
	TempDir string
	// AllowedExtensions is compared case-insensitively.
	AllowedExtensions []string
}

// Job is one uploaded media file and the languages to translate it into.
type Job struct {
	// ID names the job's transient files. Generated when empty.
	ID        string
	VideoName string
	Content   io.Reader
	Languages []string
}

// RecordStore persists translation records. *persistence.Session satisfies it.
type RecordStore interface {
	AppendTranslation(ctx context.Context, rec persistence.TranslationRecord) (persistence.TranslationRecord, error)
}

// LanguageOutcome is the result of one target language of a file.
type LanguageOutcome struct {
	Language     string
	Record       *persistence.TranslationRecord
	ArtifactPath string
	Err          error
}

// FileResult is what processing one file produced.
type FileResult struct {
	VideoName  string
	Duration   float64
	Transcript string
	Outcomes   []LanguageOutcome
}

// Err joins the per-language failures, nil when every language succeeded.
func (r FileResult) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// ParseLanguages trims the given values and drops blanks. Each value is one
// label, commas included. Order is kept.
func ParseLanguages(values ...string) []string {
	var languages []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			languages = append(languages, value)
		}
	}
	return languages
}
