package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the client settings lector needs to reach the library backend.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	LogFile   string
}

// EnvBaseURL overrides base_url when set.
const EnvBaseURL = "LECTOR_BASE_URL"

const (
	defaultConfigPath = "~/.config/lector/config.toml"
	defaultBaseURL    = "http://127.0.0.1:8080"
	defaultTimeout    = 10 * time.Second
	defaultUserAgent  = "lector/0.1"
	defaultLogFile    = "~/.local/share/lector/lector.log"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:   defaultBaseURL,
		Timeout:   defaultTimeout,
		UserAgent: defaultUserAgent,
		LogFile:   mustExpand(defaultLogFile),
	}
}

// fileConfig mirrors config.toml; zero values mean "use the default".
type fileConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	LogFile        string `toml:"log_file"`
}

// Load locates and parses the lector config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyEnv(&cfg)
		return cfg, nil
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	raw.merge(&cfg)
	applyEnv(&cfg)
	return cfg, nil
}

func (raw fileConfig) merge(cfg *Config) {
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if raw.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.UserAgent); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ against the home directory and returns an
// absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if rest, ok := strings.CutPrefix(trimmed, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, rest)
	}
	return filepath.Abs(trimmed)
}
