package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageValidation Stage = "validation"
	StageUpload     Stage = "upload"
	StageProbe      Stage = "probe"
	StageExtract    Stage = "extract"
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageArtifact   Stage = "artifact"
	StagePersist    Stage = "persist"
)

// Error is a stage-tagged pipeline failure. Language is empty for
// file-level failures.
type Error struct {
	Stage    Stage
	File     string
	Language string
	Cause    error
}

func newError(stage Stage, file, language string, cause error) *Error {
	return &Error{Stage: stage, File: file, Language: language, Cause: cause}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Stage))

	var ctxParts []string
	if e.File != "" {
		ctxParts = append(ctxParts, "file="+e.File)
	}
	if e.Language != "" {
		ctxParts = append(ctxParts, "language="+e.Language)
	}
	if len(ctxParts) > 0 {
		parts = append(parts, strings.Join(ctxParts, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsStage reports whether err wraps a pipeline Error from stage.
func IsStage(err error, stage Stage) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Stage == stage
	}
	return false
}

// AsError extracts the pipeline Error from err.
func AsError(err error) (*Error, bool) {
	var pErr *Error
	ok := errors.As(err, &pErr)
	return pErr, ok
}
