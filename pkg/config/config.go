package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is the model the chat script has always asked for.
	DefaultModel = "ggml-gpt4all-j-v1.3-groovy"
	// DefaultBaseURL is the OpenAI-compatible endpoint of the GPT4All desktop server.
	DefaultBaseURL = "http://localhost:4891/v1"
	// DefaultAPIKey is sent when none is configured; the local server ignores it.
	DefaultAPIKey = "not-needed"
)

// Environment variable names read by FromEnv.
const (
	EnvBaseURL     = "GPT4ALL_BASE_URL"
	EnvModel       = "GPT4ALL_MODEL"
	EnvAPIKey      = "GPT4ALL_API_KEY"
	EnvTimeout     = "GPT4ALL_TIMEOUT"
	EnvOptionsFile = "GPT4ALL_OPTIONS_FILE"
)

// Config holds all runtime configuration for one invocation.
type Config struct {
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	OptionsFile string
	Verbose     bool

	Generation GenerationOptions
}

// GenerationOptions are sampling knobs forwarded to the backend.
// Zero values leave the backend default in place.
type GenerationOptions struct {
	MaxTokens   int64    `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	Stop        []string `yaml:"stop"`
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		Model:   DefaultModel,
		BaseURL: DefaultBaseURL,
		APIKey:  DefaultAPIKey,
	}
}

// FromEnv overlays environment values on cfg. Unset or blank variables keep
// the existing value.
func FromEnv(cfg Config, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvModel)); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIKey)); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvOptionsFile)); v != "" {
		cfg.OptionsFile = v
	}
	if v := strings.TrimSpace(getenv(EnvTimeout)); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	defaults := DefaultConfig()
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.OptionsFile = strings.TrimSpace(cfg.OptionsFile)

	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = defaults.APIKey
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	if cfg.Generation.MaxTokens < 0 {
		cfg.Generation.MaxTokens = 0
	}
	return cfg
}

// LoadGenerationOptions reads generation options from a YAML file.
func LoadGenerationOptions(path string) (GenerationOptions, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return GenerationOptions{}, err
	}
	opts, err := parseGenerationOptions(content)
	if err != nil {
		return GenerationOptions{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return opts, nil
}

func parseGenerationOptions(content []byte) (GenerationOptions, error) {
	var opts GenerationOptions
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file.
			return GenerationOptions{}, nil
		}
		return GenerationOptions{}, err
	}
	if opts.MaxTokens < 0 {
		return GenerationOptions{}, fmt.Errorf("max_tokens must not be negative")
	}
	if opts.Temperature != nil && *opts.Temperature < 0 {
		return GenerationOptions{}, fmt.Errorf("temperature must not be negative")
	}
	if opts.TopP != nil && (*opts.TopP < 0 || *opts.TopP > 1) {
		return GenerationOptions{}, fmt.Errorf("top_p must be between 0 and 1")
	}
	for i, stop := range opts.Stop {
		if stop == "" {
			return GenerationOptions{}, fmt.Errorf("stop[%d] must not be empty", i)
		}
	}
	return opts, nil
}
