package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/media"
	"github.com/MimeLyc/media-subtitle-translator/internal/persistence"
	"github.com/MimeLyc/media-subtitle-translator/internal/subtitle"
	"github.com/MimeLyc/media-subtitle-translator/internal/transcription"
	"github.com/MimeLyc/media-subtitle-translator/internal/translator"
	"github.com/MimeLyc/media-subtitle-translator/pkg/file"
	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

// Orchestrator runs uploaded media through probe, audio extraction,
// transcription and per-language translation, then writes one SRT artifact
// and one record per language.
type Orchestrator struct {
	cfg         Config
	transcoder  media.Transcoder
	transcriber transcription.Transcriber
	translator  translator.Translator
	artifacts   *artifact.Store
	newID       func() string
}

func New(
	cfg Config,
	transcoder media.Transcoder,
	transcriber transcription.Transcriber,
	translator translator.Translator,
	artifacts *artifact.Store,
) *Orchestrator {
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = DefaultAllowedExtensions
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Orchestrator{
		cfg:         cfg,
		transcoder:  transcoder,
		transcriber: transcriber,
		translator:  translator,
		artifacts:   artifacts,
		newID:       uuid.NewString,
	}
}

// Validate checks that fileName has an allowed extension.
func (o *Orchestrator) Validate(fileName string) error {
	if strings.TrimSpace(fileName) == "" {
		return newError(StageValidation, fileName, "", fmt.Errorf("file name is required"))
	}
	if !file.HasExt(fileName, o.cfg.AllowedExtensions) {
		return newError(StageValidation, fileName, "",
			fmt.Errorf("file type not allowed, expected one of %s", strings.Join(o.cfg.AllowedExtensions, " ")))
	}
	return nil
}

func (o *Orchestrator) validateJob(job Job) error {
	if err := o.Validate(job.VideoName); err != nil {
		return err
	}
	if job.Content == nil {
		return newError(StageValidation, job.VideoName, "", fmt.Errorf("file content is required"))
	}
	if len(ParseLanguages(job.Languages...)) == 0 {
		return newError(StageValidation, job.VideoName, "", fmt.Errorf("at least one target language is required"))
	}
	return nil
}

// AcceptAll validates every job before touching any of them, then processes
// them in order. It stops at the first file-level failure and returns the
// results of the files completed before it.
func (o *Orchestrator) AcceptAll(ctx context.Context, jobs []Job, store RecordStore) ([]FileResult, error) {
	if len(jobs) == 0 {
		return nil, newError(StageValidation, "", "", fmt.Errorf("no files provided"))
	}
	for _, job := range jobs {
		if err := o.validateJob(job); err != nil {
			return nil, err
		}
	}

	results := make([]FileResult, 0, len(jobs))
	for _, job := range jobs {
		res, err := o.Accept(ctx, job, store)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Accept processes one job synchronously. A returned error is a file-level
// failure; per-language failures are reported in FileResult.Outcomes.
// Transient files of the job are removed on every path.
func (o *Orchestrator) Accept(ctx context.Context, job Job, store RecordStore) (FileResult, error) {
	result := FileResult{VideoName: job.VideoName}
	if err := o.validateJob(job); err != nil {
		return result, err
	}
	languages := ParseLanguages(job.Languages...)

	if job.ID == "" {
		job.ID = o.newID()
	}
	uploadPath := filepath.Join(o.cfg.TempDir, job.ID+"_"+filepath.Base(job.VideoName))
	audioPath := filepath.Join(o.cfg.TempDir, job.ID+"_"+file.Stem(job.VideoName)+"_audio.wav")
	defer o.cleanup(uploadPath, audioPath)

	if err := o.saveUpload(job, uploadPath); err != nil {
		return result, newError(StageUpload, job.VideoName, "", err)
	}

	duration, err := o.transcoder.ProbeDuration(ctx, uploadPath)
	if err != nil {
		return result, newError(StageProbe, job.VideoName, "", err)
	}
	result.Duration = duration

	if err := o.transcoder.ExtractAudio(ctx, uploadPath, audioPath); err != nil {
		return result, newError(StageExtract, job.VideoName, "", err)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return result, newError(StageTranscribe, job.VideoName, "", fmt.Errorf("read extracted audio: %w", err))
	}
	transcript, err := o.transcriber.Transcribe(ctx, transcription.Audio{
		Name: filepath.Base(audioPath),
		Data: audio,
	})
	if err != nil {
		return result, newError(StageTranscribe, job.VideoName, "", err)
	}
	result.Transcript = transcript
	log.Info("Transcribed %s: %d chars, detected language %s", job.VideoName, len(transcript), subtitle.DetectLanguage(transcript))

	for _, lang := range languages {
		outcome := o.translateOne(ctx, job.VideoName, lang, transcript, duration, store)
		if outcome.Err != nil {
			log.Error("Failed to translate %s to %s: %v", job.VideoName, lang, outcome.Err)
		} else {
			log.Info("Translated %s to %s: %s", job.VideoName, lang, outcome.ArtifactPath)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func (o *Orchestrator) translateOne(
	ctx context.Context,
	videoName string,
	lang string,
	transcript string,
	duration float64,
	store RecordStore,
) LanguageOutcome {
	outcome := LanguageOutcome{Language: lang}

	translated, err := o.translator.Translate(ctx, transcript, lang)
	if err == nil && strings.TrimSpace(translated) == "" {
		err = translator.ErrNotText
	}
	if err != nil {
		outcome.Err = newError(StageTranslate, videoName, lang, err)
		return outcome
	}

	track := subtitle.Synthesize(translated, duration)
	track.Language = subtitle.DetectLanguage(translated)
	log.Debug("Synthesized %d cues for %s/%s spanning %s (detected %s)", len(track.Lines), videoName, lang, track.Duration(), track.Language)

	path, err := o.artifacts.Write(ctx, videoName, lang, track)
	if err != nil {
		outcome.Err = newError(StageArtifact, videoName, lang, err)
		return outcome
	}
	outcome.ArtifactPath = path

	rec, err := store.AppendTranslation(ctx, persistence.TranslationRecord{
		VideoName:    videoName,
		Language:     lang,
		Translation:  translated,
		ArtifactPath: path,
	})
	if err != nil {
		outcome.Err = newError(StagePersist, videoName, lang, err)
		return outcome
	}
	outcome.Record = &rec
	return outcome
}

func (o *Orchestrator) saveUpload(job Job, dest string) error {
	if err := os.MkdirAll(o.cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(f, job.Content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	log.Info("Received %s (%s) as job %s", job.VideoName, humanize.Bytes(uint64(n)), job.ID)
	return nil
}

func (o *Orchestrator) cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove temporary file %s: %v", path, err)
		}
	}
}
