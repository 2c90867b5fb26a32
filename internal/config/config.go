package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Values come from built-in defaults, then an optional TOML file, then
// environment variables, then Options.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the chat completion provider (required to process)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_MODEL: Model name to use (default: gpt-4)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
//
// Transcription Configuration:
// - TRANSCRIBE_API_KEY: API key (default: LLM_API_KEY)
// - TRANSCRIBE_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - TRANSCRIBE_MODEL: Model name (default: whisper-1)
// - TRANSCRIBE_LANGUAGE: Spoken language hint as a BCP 47 tag (optional)
// - TRANSCRIBE_TIMEOUT: Request timeout in seconds, 0 for none (default: 0)
//
// Media Configuration:
// - FFMPEG_DIR: Directory holding ffmpeg and ffprobe (default: PATH lookup)
// - ALLOWED_EXTENSIONS: Comma separated upload extensions (default: .mp3,.wav,.m4a,.mp4,.avi,.mov)
// - OUTPUT_DIR: Subtitle artifact directory (default: output)
// - TEMP_DIR: Transient upload and audio directory (default: temp)
//
// System Configuration:
// - DATA_DIR: Directory for the database (default: data)
// - DB_FILE: Database file name inside DATA_DIR (default: translations.db)
// - HTTP_ADDR: Listen address (default: :8080)
// - UI_ENABLED: Serve the static UI at / (default: true)
// - UI_STATIC_DIR: Static UI directory (default: web)
// - HTTP_MAX_UPLOAD_MEMORY: Multipart bytes held in memory, e.g. 64MiB (default: 32MiB)
// - JANITOR_CRON: Temp directory sweep schedule, empty disables (default: */30 * * * *)
// - JANITOR_MAX_AGE: Age after which temp files are swept (default: 6h)
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - LOG_FORMAT: auto, console, json (default: auto)
type Config struct {
	LLM        LLMConfig        `toml:"llm" json:"llm"`
	Transcribe TranscribeConfig `toml:"transcribe" json:"transcribe"`
	Media      MediaConfig      `toml:"media" json:"media"`
	System     SystemConfig     `toml:"system" json:"system"`
	HTTP       HTTPConfig       `toml:"http" json:"http"`
	Janitor    JanitorConfig    `toml:"janitor" json:"janitor"`
	Log        LogConfig        `toml:"log" json:"log"`
}

// LLMConfig holds the configuration for the chat completion client
type LLMConfig struct {
	APIKey      string  `toml:"api_key" json:"api_key"`
	APIURL      string  `toml:"api_url" json:"api_url" validate:"required,url"`
	Model       string  `toml:"model" json:"model" validate:"required"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens" validate:"gte=0"`
	Temperature float64 `toml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	Timeout     int     `toml:"timeout" json:"timeout" validate:"gte=0"`
	SiteURL     string  `toml:"site_url" json:"site_url"`
	AppName     string  `toml:"app_name" json:"app_name"`
}

// TranscribeConfig holds the configuration for the speech-to-text client
type TranscribeConfig struct {
	APIKey   string `toml:"api_key" json:"api_key"`
	APIURL   string `toml:"api_url" json:"api_url" validate:"required,url"`
	Model    string `toml:"model" json:"model" validate:"required"`
	Language string `toml:"language" json:"language"`
	Timeout  int    `toml:"timeout" json:"timeout" validate:"gte=0"`
}

// LanguageHint returns the ISO 639-1 code of the configured spoken
// language, or "" when none is set.
func (c TranscribeConfig) LanguageHint() (string, error) {
	if strings.TrimSpace(c.Language) == "" {
		return "", nil
	}
	tag, err := language.Parse(strings.TrimSpace(c.Language))
	if err != nil {
		return "", fmt.Errorf("invalid transcription language %q: %w", c.Language, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// MediaConfig holds the media tooling and file layout configuration
type MediaConfig struct {
	FFmpegDir         string   `toml:"ffmpeg_dir" json:"ffmpeg_dir"`
	AllowedExtensions []string `toml:"allowed_extensions" json:"allowed_extensions" validate:"min=1,dive,required"`
	OutputDir         string   `toml:"output_dir" json:"output_dir" validate:"required"`
	TempDir           string   `toml:"temp_dir" json:"temp_dir" validate:"required"`
}

// SystemConfig holds the persistence configuration
type SystemConfig struct {
	DataDir string `toml:"data_dir" json:"data_dir" validate:"required"`
	DBFile  string `toml:"db_file" json:"db_file" validate:"required"`
}

// HTTPConfig holds the HTTP server configuration
type HTTPConfig struct {
	Addr        string `toml:"addr" json:"addr" validate:"required"`
	UIEnabled   bool   `toml:"ui_enabled" json:"ui_enabled"`
	UIStaticDir string `toml:"ui_static_dir" json:"ui_static_dir"`
	// multipart bytes kept in memory per request; the rest spills to disk
	MaxUploadMemory ByteSize `toml:"max_upload_memory" json:"max_upload_memory" validate:"gt=0"`
}

// JanitorConfig holds the temp directory sweep configuration
type JanitorConfig struct {
	CronExpr string   `toml:"cron" json:"cron"`
	MaxAge   Duration `toml:"max_age" json:"max_age" validate:"gt=0"`
}

// LogConfig holds the logger configuration
type LogConfig struct {
	Level  string `toml:"level" json:"level" validate:"oneof=debug info warn warning error fatal DEBUG INFO WARN WARNING ERROR FATAL"`
	Format string `toml:"format" json:"format" validate:"oneof=auto console json"`
}

// Duration is a time.Duration read from strings such as "6h" or "30m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ByteSize is a byte count read from strings such as "32MiB" or "8 MB".
type ByteSize uint64

func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := humanize.ParseBytes(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*b = ByteSize(parsed)
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(humanize.IBytes(uint64(b))), nil
}

// Option is a function type for configuring Config
type Option func(*Config)

// DBPath returns the database file path
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, c.System.DBFile)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			APIURL:      "https://api.openai.com/v1",
			Model:       "gpt-4",
			MaxTokens:   4000,
			Temperature: 0.3,
			Timeout:     120,
		},
		Transcribe: TranscribeConfig{
			APIURL: "https://api.openai.com/v1",
			Model:  "whisper-1",
		},
		Media: MediaConfig{
			AllowedExtensions: []string{".mp3", ".wav", ".m4a", ".mp4", ".avi", ".mov"},
			OutputDir:         "output",
			TempDir:           "temp",
		},
		System: SystemConfig{
			DataDir: "data",
			DBFile:  "translations.db",
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			UIEnabled:   true,
			UIStaticDir: "web",

			MaxUploadMemory: 32 << 20,
		},
		Janitor: JanitorConfig{
			CronExpr: "*/30 * * * *",
			MaxAge:   Duration(6 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// NewFromEnv creates a Config from defaults, the TOML file named by
// CONFIG_FILE (if any), environment variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	return Load(getEnvString("CONFIG_FILE", ""), opts...)
}

// Load is NewFromEnv with an explicit TOML file path. An empty path skips
// the file.
func Load(path string, opts ...Option) (*Config, error) {
	config := Default()

	if path != "" {
		if err := decodeFile(path, &config); err != nil {
			return nil, err
		}
	}

	applyEnv(&config)

	// Apply custom options
	for _, opt := range opts {
		opt(&config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyEnv overrides fields whose environment variable is set.
func applyEnv(c *Config) {
	c.LLM.APIKey = getEnvString("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.APIURL = getEnvString("LLM_API_URL", c.LLM.APIURL)
	c.LLM.Model = getEnvString("LLM_MODEL", c.LLM.Model)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvInt("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.SiteURL = getEnvString("LLM_SITE_URL", c.LLM.SiteURL)
	c.LLM.AppName = getEnvString("LLM_APP_NAME", c.LLM.AppName)

	c.Transcribe.APIKey = getEnvString("TRANSCRIBE_API_KEY", c.Transcribe.APIKey)
	c.Transcribe.APIURL = getEnvString("TRANSCRIBE_API_URL", c.Transcribe.APIURL)
	c.Transcribe.Model = getEnvString("TRANSCRIBE_MODEL", c.Transcribe.Model)
	c.Transcribe.Language = getEnvString("TRANSCRIBE_LANGUAGE", c.Transcribe.Language)
	c.Transcribe.Timeout = getEnvInt("TRANSCRIBE_TIMEOUT", c.Transcribe.Timeout)
	if c.Transcribe.APIKey == "" {
		c.Transcribe.APIKey = c.LLM.APIKey
	}

	c.Media.FFmpegDir = getEnvString("FFMPEG_DIR", c.Media.FFmpegDir)
	c.Media.AllowedExtensions = getEnvList("ALLOWED_EXTENSIONS", c.Media.AllowedExtensions)
	c.Media.OutputDir = getEnvString("OUTPUT_DIR", c.Media.OutputDir)
	c.Media.TempDir = getEnvString("TEMP_DIR", c.Media.TempDir)

	c.System.DataDir = getEnvString("DATA_DIR", c.System.DataDir)
	c.System.DBFile = getEnvString("DB_FILE", c.System.DBFile)

	c.HTTP.Addr = getEnvString("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.UIEnabled = getEnvBool("UI_ENABLED", c.HTTP.UIEnabled)
	c.HTTP.UIStaticDir = getEnvString("UI_STATIC_DIR", c.HTTP.UIStaticDir)
	c.HTTP.MaxUploadMemory = getEnvBytes("HTTP_MAX_UPLOAD_MEMORY", c.HTTP.MaxUploadMemory)

	if value, ok := os.LookupEnv("JANITOR_CRON"); ok {
		c.Janitor.CronExpr = strings.TrimSpace(value)
	}
	c.Janitor.MaxAge = Duration(getEnvDuration("JANITOR_MAX_AGE", time.Duration(c.Janitor.MaxAge)))

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("LOG_FORMAT", c.Log.Format)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blank entries.
func getEnvBytes(key string, defaultValue ByteSize) ByteSize {
	if value := os.Getenv(key); value != "" {
		var size ByteSize
		if err := size.UnmarshalText([]byte(value)); err == nil {
			return size
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var ret []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	if len(ret) == 0 {
		return defaultValue
	}
	return ret
}
