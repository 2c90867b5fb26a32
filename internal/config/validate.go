package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/MimeLyc/media-subtitle-translator/pkg/icron"
)

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		// report toml key names
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return structValidator
}

// RequireCredentials reports whether the API keys needed to transcribe and
// translate are set. Commands that only read the store skip it.
func (c *Config) RequireCredentials() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.Transcribe.APIKey == "" {
		return fmt.Errorf("TRANSCRIBE_API_KEY is required")
	}
	return nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			messages = append(messages, formatFieldError(fe))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
	}

	// the janitor sweeps TempDir; artifacts must never live there
	if filepath.Clean(c.Media.TempDir) == filepath.Clean(c.Media.OutputDir) {
		return fmt.Errorf("invalid configuration: media.temp_dir must differ from media.output_dir")
	}

	if _, err := c.Transcribe.LanguageHint(); err != nil {
		return err
	}
	if c.Janitor.CronExpr != "" {
		if _, err := icron.Parse(c.Janitor.CronExpr); err != nil {
			return fmt.Errorf("invalid janitor cron: %w", err)
		}
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	// Namespace is "Config.llm.api_url"; drop the root struct name.
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
