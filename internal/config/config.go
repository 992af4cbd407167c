package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
	"gitlab.com/tozd/go/errors"
)

// Config captures atlas runtime settings. Values come from the TOML file and
// are then overridden by ATLAS_* environment variables.
type Config struct {
	APIURL         string        `env:"API_URL"`
	PageSize       int           `env:"PAGE_SIZE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	TokenPath      string        `env:"TOKEN_PATH"`
	PrefsPath      string        `env:"PREFS_PATH"`
	LogFile        string        `env:"LOG_FILE"`
	LogLevel       string        `env:"LOG_LEVEL"`
	WatchInterval  time.Duration `env:"WATCH_INTERVAL"`
}

const (
	defaultConfigPath     = "~/.config/atlas/config.toml"
	defaultAPIURL         = "http://localhost:5000"
	defaultPageSize       = 5
	defaultRequestTimeout = 10 * time.Second
	defaultTokenPath      = "~/.config/atlas/session.toml"
	defaultPrefsPath      = "~/.config/atlas/prefs.toml"
	defaultLogFile        = "~/.local/state/atlas/atlas.log"
	defaultLogLevel       = "info"
	defaultWatchInterval  = time.Second

	envPrefix = "ATLAS_"
)

// Defaults returns the configuration used when no file or env is present.
func Defaults() Config {
	return Config{
		APIURL:         defaultAPIURL,
		PageSize:       defaultPageSize,
		RequestTimeout: defaultRequestTimeout,
		TokenPath:      mustExpand(defaultTokenPath),
		PrefsPath:      mustExpand(defaultPrefsPath),
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		WatchInterval:  defaultWatchInterval,
	}
}

// Load locates and parses the atlas config, falling back to defaults when
// missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		if err := parseFile(file, &cfg); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, errors.Errorf("open config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, errors.Errorf("parse environment: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func parseFile(r io.Reader, cfg *Config) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return errors.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		PageSize       int    `toml:"page_size"`
		RequestTimeout string `toml:"request_timeout"`
		TokenPath      string `toml:"token_path"`
		PrefsPath      string `toml:"prefs_path"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
		WatchInterval  string `toml:"watch_interval"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return errors.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Errorf("parse config: request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.TokenPath); v != "" {
		cfg.TokenPath = v
	}
	if v := strings.TrimSpace(raw.PrefsPath); v != "" {
		cfg.PrefsPath = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(raw.WatchInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Errorf("parse config: watch_interval: %w", err)
		}
		cfg.WatchInterval = d
	}
	return nil
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = defaultWatchInterval
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.TokenPath = expandOr(c.TokenPath, defaultTokenPath)
	c.PrefsPath = expandOr(c.PrefsPath, defaultPrefsPath)
	c.LogFile = expandOr(c.LogFile, defaultLogFile)
}

func expandOr(path, fallback string) string {
	if strings.TrimSpace(path) == "" {
		return mustExpand(fallback)
	}
	return mustExpand(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
