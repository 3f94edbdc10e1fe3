package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/five82/sheetsync/internal/autosave"
	"github.com/five82/sheetsync/internal/lifecycle"
	"github.com/five82/sheetsync/internal/logging"
)

// Config is the resolved sheetsync configuration.
type Config struct {
	Path     string // file the config was read from, even if it did not exist
	APIURL   string
	Token    string
	Autosave Autosave
	Log      Log
	Server   Server
}

// Autosave holds the coordinator timings.
type Autosave struct {
	Debounce           time.Duration
	SavedBadge         time.Duration
	DirtyCheckThrottle time.Duration
	MaxRetries         int
	RetryBase          time.Duration
	MaxRetryDelay      time.Duration
	PersistTimeout     time.Duration
	ShutdownDeadline   time.Duration
}

// Log configures the logging package.
type Log struct {
	Level  string
	Format string
	File   string
	Stderr string
}

// Server configures the serve command.
type Server struct {
	Listen     string
	DBPath     string
	CORSOrigin string // empty disables CORS headers
}

const (
	defaultConfigPath = "~/.config/sheetsync/config.toml"
	defaultAPIURL     = "127.0.0.1:8080"
	defaultLogFile    = "~/.local/state/sheetsync/sheetsync.log"
	defaultListen     = "127.0.0.1:8080"
	defaultDBPath     = "~/.local/share/sheetsync/sheetsync.db"

	// EnvAPIURL and EnvToken override the file values when set.
	EnvAPIURL = "SHEETSYNC_API_URL"
	EnvToken  = "SHEETSYNC_TOKEN"
)

type rawConfig struct {
	APIURL   string      `toml:"api_url" yaml:"api_url"`
	Token    string      `toml:"token" yaml:"token"`
	Autosave rawAutosave `toml:"autosave" yaml:"autosave"`
	Log      rawLog      `toml:"log" yaml:"log"`
	Server   rawServer   `toml:"server" yaml:"server"`
}

type rawAutosave struct {
	Debounce           string `toml:"debounce" yaml:"debounce"`
	SavedBadge         string `toml:"saved_badge" yaml:"saved_badge"`
	DirtyCheckThrottle string `toml:"dirty_check_throttle" yaml:"dirty_check_throttle"`
	MaxRetries         *int   `toml:"max_retries" yaml:"max_retries"`
	RetryBase          string `toml:"retry_base" yaml:"retry_base"`
	MaxRetryDelay      string `toml:"max_retry_delay" yaml:"max_retry_delay"`
	PersistTimeout     string `toml:"persist_timeout" yaml:"persist_timeout"`
	ShutdownDeadline   string `toml:"shutdown_deadline" yaml:"shutdown_deadline"`
}

type rawLog struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file" yaml:"file"`
	Stderr string `toml:"stderr" yaml:"stderr"`
}

type rawServer struct {
	Listen     string `toml:"listen" yaml:"listen"`
	DBPath     string `toml:"db_path" yaml:"db_path"`
	CORSOrigin string `toml:"cors_origin" yaml:"cors_origin"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	t := autosave.DefaultTiming()
	return Config{
		APIURL: defaultAPIURL,
		Autosave: Autosave{
			Debounce:           t.Debounce,
			SavedBadge:         t.SavedBadge,
			DirtyCheckThrottle: t.DirtyCheckThrottle,
			MaxRetries:         t.MaxRetries,
			RetryBase:          t.RetryBase,
			MaxRetryDelay:      t.MaxRetryDelay,
			PersistTimeout:     t.PersistTimeout,
			ShutdownDeadline:   lifecycle.DefaultShutdownDeadline,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
			File:   mustExpand(defaultLogFile),
			Stderr: "auto",
		},
		Server: Server{
			Listen: defaultListen,
			DBPath: mustExpand(defaultDBPath),
		},
	}
}

// Load locates and parses the config, falling back to defaults when missing.
// Files ending in .yml or .yaml are read as YAML, everything else as TOML.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if isYAML(resolved) {
		err = yaml.Unmarshal(bytes, &raw)
	} else {
		err = toml.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := merge(&cfg, raw); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(cfg *Config, raw rawConfig) error {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)

	durations := []struct {
		name string
		raw  string
		dest *time.Duration
	}{
		{"autosave.debounce", raw.Autosave.Debounce, &cfg.Autosave.Debounce},
		{"autosave.saved_badge", raw.Autosave.SavedBadge, &cfg.Autosave.SavedBadge},
		{"autosave.dirty_check_throttle", raw.Autosave.DirtyCheckThrottle, &cfg.Autosave.DirtyCheckThrottle},
		{"autosave.retry_base", raw.Autosave.RetryBase, &cfg.Autosave.RetryBase},
		{"autosave.max_retry_delay", raw.Autosave.MaxRetryDelay, &cfg.Autosave.MaxRetryDelay},
		{"autosave.persist_timeout", raw.Autosave.PersistTimeout, &cfg.Autosave.PersistTimeout},
		{"autosave.shutdown_deadline", raw.Autosave.ShutdownDeadline, &cfg.Autosave.ShutdownDeadline},
	}
	for _, d := range durations {
		v := strings.TrimSpace(d.raw)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse config: %s: %w", d.name, err)
		}
		*d.dest = parsed
	}
	if raw.Autosave.MaxRetries != nil {
		cfg.Autosave.MaxRetries = *raw.Autosave.MaxRetries
	}

	if v := strings.TrimSpace(raw.Log.Level); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Log.Format); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Log.File); v != "" {
		cfg.Log.File = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Log.Stderr); v != "" {
		cfg.Log.Stderr = strings.ToLower(v)
	}

	if v := strings.TrimSpace(raw.Server.Listen); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(raw.Server.DBPath); v != "" {
		cfg.Server.DBPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Server.CORSOrigin); v != "" {
		cfg.Server.CORSOrigin = v
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
}

// Validate rejects values the coordinator or logger cannot run with.
func (c Config) Validate() error {
	a := c.Autosave
	positive := []struct {
		name string
		v    time.Duration
	}{
		{"debounce", a.Debounce},
		{"saved_badge", a.SavedBadge},
		{"dirty_check_throttle", a.DirtyCheckThrottle},
		{"retry_base", a.RetryBase},
		{"max_retry_delay", a.MaxRetryDelay},
		{"persist_timeout", a.PersistTimeout},
		{"shutdown_deadline", a.ShutdownDeadline},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("invalid config: autosave.%s must be positive, got %s", p.name, p.v)
		}
	}
	if a.MaxRetries < 1 {
		return fmt.Errorf("invalid config: autosave.max_retries must be at least 1, got %d", a.MaxRetries)
	}
	if a.MaxRetryDelay < a.RetryBase {
		return fmt.Errorf("invalid config: autosave.max_retry_delay (%s) is below retry_base (%s)", a.MaxRetryDelay, a.RetryBase)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Log.Stderr {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid config: log.stderr must be auto, always or never, got %q", c.Log.Stderr)
	}

	api := c.APIURL
	if !strings.Contains(api, "://") {
		api = "http://" + api
	}
	if u, err := url.Parse(api); err != nil || u.Host == "" {
		return fmt.Errorf("invalid config: api_url %q", c.APIURL)
	}
	return nil
}

// Timing converts the section into coordinator timings.
func (a Autosave) Timing() autosave.Timing {
	return autosave.Timing{
		Debounce:           a.Debounce,
		SavedBadge:         a.SavedBadge,
		DirtyCheckThrottle: a.DirtyCheckThrottle,
		MaxRetries:         a.MaxRetries,
		RetryBase:          a.RetryBase,
		MaxRetryDelay:      a.MaxRetryDelay,
		PersistTimeout:     a.PersistTimeout,
	}
}

// Logging converts the section into logging options.
func (l Log) Logging() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, File: l.File, Stderr: l.Stderr}
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
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
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
