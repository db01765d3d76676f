// Package config loads asset-classifier settings from defaults, an optional
// TOML file, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/fpang/asset-classifier/internal/chat"
	"github.com/fpang/asset-classifier/internal/retry"
)

// DefaultOutputFile is the result file written in the working directory.
const DefaultOutputFile = "asset_classification_results.json"

// Environment variables that override file values.
const (
	EnvModel       = "GEMINI_MODEL"
	EnvMaxAttempts = "ASSET_CLASSIFIER_MAX_ATTEMPTS"
	EnvRetryDelay  = "ASSET_CLASSIFIER_RETRY_DELAY"
	EnvOutput      = "ASSET_CLASSIFIER_OUTPUT"
	EnvS3Bucket    = "RESULTS_S3_BUCKET"
)

// Gemini selects the model used for classification.
type Gemini struct {
	Model string `toml:"model"`
}

// Retry bounds attempts per asset. Delay is a Go duration string such as "1s".
type Retry struct {
	MaxAttempts int    `toml:"max_attempts"`
	Delay       string `toml:"delay"`

	delay time.Duration
}

// Assets controls discovery and encoding.
type Assets struct {
	Dir          string `toml:"dir"`
	MaxDimension int    `toml:"max_dimension"`
}

// Output controls where results go.
type Output struct {
	Path     string `toml:"path"`
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
}

// Config holds every tunable of a run.
type Config struct {
	Gemini Gemini `toml:"gemini"`
	Retry  Retry  `toml:"retry"`
	Assets Assets `toml:"assets"`
	Output Output `toml:"output"`
}

// Default returns the built-in configuration: three attempts one second apart,
// the current directory as input, and the standard output file.
func Default() Config {
	p := retry.DefaultPolicy()
	return Config{
		Gemini: Gemini{Model: chat.DefaultModelName},
		Retry: Retry{
			MaxAttempts: p.MaxAttempts,
			Delay:       p.Delay.String(),
			delay:       p.Delay,
		},
		Assets: Assets{Dir: "."},
		Output: Output{Path: DefaultOutputFile},
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/asset-classifier/config.toml")
}

// Load locates, parses, and validates a configuration file, then applies
// environment overrides. A missing file is not an error; the returned bool
// reports whether one was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("asset-classifier.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.Gemini.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxAttempts)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxAttempts, err)
		}
		c.Retry.MaxAttempts = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvRetryDelay)); v != "" {
		c.Retry.Delay = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutput)); v != "" {
		c.Output.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3Bucket)); v != "" {
		c.Output.S3Bucket = v
	}
	return nil
}

func (c *Config) normalize() error {
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = chat.DefaultModelName
	}

	c.Retry.Delay = strings.TrimSpace(c.Retry.Delay)
	if c.Retry.Delay == "" {
		c.Retry.delay = 0
	} else {
		d, err := time.ParseDuration(c.Retry.Delay)
		if err != nil {
			return fmt.Errorf("retry.delay: %w", err)
		}
		c.Retry.delay = d
	}

	c.Assets.Dir = strings.TrimSpace(c.Assets.Dir)
	if c.Assets.Dir == "" {
		c.Assets.Dir = "."
	}
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	c.Output.S3Bucket = strings.TrimSpace(c.Output.S3Bucket)
	c.Output.S3Prefix = strings.Trim(strings.TrimSpace(c.Output.S3Prefix), "/")
	return nil
}

// SetRetryDelay overrides the delay, keeping the string form in sync.
func (c *Config) SetRetryDelay(d time.Duration) {
	c.Retry.delay = d
	c.Retry.Delay = d.String()
}

// RetryPolicy returns the retry settings as a retry.Policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.Retry.MaxAttempts, Delay: c.Retry.delay}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.delay < 0 {
		return fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.delay)
	}
	if c.Assets.MaxDimension < 0 {
		return fmt.Errorf("assets.max_dimension must not be negative, got %d", c.Assets.MaxDimension)
	}
	if c.Output.Path == "" {
		return errors.New("output.path must be set")
	}
	if c.Output.S3Prefix != "" && c.Output.S3Bucket == "" {
		return errors.New("output.s3_prefix requires output.s3_bucket")
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
