package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/config"
	"github.com/MimeLyc/media-subtitle-translator/internal/llm"
	"github.com/MimeLyc/media-subtitle-translator/internal/media"
	"github.com/MimeLyc/media-subtitle-translator/internal/persistence"
	"github.com/MimeLyc/media-subtitle-translator/internal/pipeline"
	"github.com/MimeLyc/media-subtitle-translator/internal/transcription"
	"github.com/MimeLyc/media-subtitle-translator/internal/translator"
	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := config.LoadDotEnv(".env"); err != nil {
			c.configErr = err
			return
		}

		var cfg *config.Config
		var err error
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			cfg, err = config.Load(path)
		} else {
			cfg, err = config.NewFromEnv()
		}
		if err != nil {
			c.configErr = err
			return
		}

		log.Configure(cfg.Log.Level, cfg.Log.Format)
		c.config = cfg
	})
	return c.config, c.configErr
}

// openStore opens the record store named by the configuration.
func openStore(cfg *config.Config) (*persistence.SQLiteStore, error) {
	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath(), err)
	}
	return store, nil
}

// newOrchestrator wires the ffmpeg, transcription and translation clients
// into a pipeline writing artifacts to artifacts.
func newOrchestrator(cfg *config.Config, artifacts *artifact.Store) (*pipeline.Orchestrator, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	hint, err := cfg.Transcribe.LanguageHint()
	if err != nil {
		return nil, err
	}
	whisper, err := transcription.NewWhisperClient(transcription.Config{
		APIKey:   cfg.Transcribe.APIKey,
		APIURL:   cfg.Transcribe.APIURL,
		Model:    cfg.Transcribe.Model,
		Language: hint,
		Timeout:  time.Duration(cfg.Transcribe.Timeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create transcription client: %w", err)
	}

	return pipeline.New(
		pipeline.Config{
			TempDir:           cfg.Media.TempDir,
			AllowedExtensions: cfg.Media.AllowedExtensions,
		},
		media.NewTranscoder(cfg.Media.FFmpegDir),
		whisper,
		translator.NewLLMTranslator(llmClient),
		artifacts,
	), nil
}
