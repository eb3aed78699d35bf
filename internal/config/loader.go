package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when no upstream credential is configured.
// The gateway must not start without one.
var ErrMissingAPIKey = errors.New("upstream api key is required (set AI_API_KEY or OPENAI_API_KEY)")

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return defaultVal
	})
}

// LoadFile reads a YAML file, expands env vars, and unmarshals into dest.
func LoadFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides maps the deployment variables used by the hosting setup
// onto the config. They win over the YAML file.
func applyEnvOverrides(cfg *Config) {
	envString(&cfg.Upstream.BaseURL, "AI_API_BASE_URL")
	envString(&cfg.Upstream.APIKey, "OPENAI_API_KEY")
	envString(&cfg.Upstream.APIKey, "AI_API_KEY")
	envString(&cfg.Upstream.Model, "OPENAI_MODEL")
	envString(&cfg.Upstream.Model, "AI_MODEL")
	envString(&cfg.Environment, "NODE_ENV")
	envString(&cfg.Environment, "APP_ENV")
	envString(&cfg.Quota.Backend, "QUOTA_BACKEND")
	envString(&cfg.Database.URL, "DATABASE_URL")
	envInt(&cfg.Server.Port, "PORT")

	if v := os.Getenv("QUOTA_DAILY_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Quota.DailyLimit = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addresses = []string{v}
	}
	if v := os.Getenv("ALLOW_CLOUDFLARE_DOMAINS"); v != "" {
		cfg.CORS.AllowCloudflare = v == "true"
	}

	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = os.Getenv("FRONTEND_URL")
	}
	if origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings the gateway cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Upstream.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base_url is required")
	}
	if c.Quota.DailyLimit < 1 {
		return fmt.Errorf("quota daily_limit must be positive, got %d", c.Quota.DailyLimit)
	}
	switch c.Quota.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown quota backend %q", c.Quota.Backend)
	}
	if _, err := c.Quota.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the time zone that decides where a quota day starts.
func (q QuotaConfig) Location() (*time.Location, error) {
	if q.Timezone == "" || q.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, fmt.Errorf("quota timezone %q: %w", q.Timezone, err)
	}
	return loc, nil
}

// Loader manages configuration loading and hot-reload via fsnotify.
type Loader struct {
	path     string
	mu       sync.RWMutex
	cfg      *Config
	watchers []func(*Config)
	logger   *slog.Logger
}

// NewLoader creates a loader for the YAML file at path. A missing file is not
// an error: defaults and environment variables are used instead.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger,
	}
}

func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if l.path != "" {
		if err := LoadFile(l.path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load gateway config: %w", err)
			}
			l.logger.Info("config file not found, using defaults and environment", "path", l.path)
		}
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()

	l.logger.Info("configuration loaded",
		"path", l.path,
		"environment", cfg.Environment,
		"quota_backend", cfg.Quota.Backend,
		"daily_limit", cfg.Quota.DailyLimit,
		"model", cfg.Upstream.Model,
	)
	return nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnReload registers a callback that fires after config is reloaded.
func (l *Loader) OnReload(fn func(*Config)) {
	l.mu.Lock()
	l.watchers = append(l.watchers, fn)
	l.mu.Unlock()
}

// Watch starts watching the config file's directory and reloads on modification.
// Editors often replace files instead of writing in place, so the directory is
// watched rather than the file itself.
func (l *Loader) Watch() error {
	if l.path == "" {
		return errors.New("no config file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					l.logger.Info("config file changed, reloading", "file", event.Name)
					if err := l.Load(); err != nil {
						l.logger.Error("failed to reload config", "error", err)
						continue
					}
					l.notify()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}

func (l *Loader) notify() {
	l.mu.RLock()
	cfg := l.cfg
	fns := append([]func(*Config){}, l.watchers...)
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(cfg)
	}
}
