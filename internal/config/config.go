package config

import (
	"fmt"
	"time"
)

type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Upstream    UpstreamConfig  `yaml:"upstream"`
	Quota       QuotaConfig     `yaml:"quota"`
	CORS        CORSConfig      `yaml:"cors"`
	Filter      FilterConfig    `yaml:"filter"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// Production reports whether the service runs with production CORS rules.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type QuotaConfig struct {
	Backend       string        `yaml:"backend"`
	DailyLimit    int64         `yaml:"daily_limit"`
	Timezone      string        `yaml:"timezone"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type CORSConfig struct {
	AllowedOrigins  []string `yaml:"allowed_origins"`
	AllowCloudflare bool     `yaml:"allow_cloudflare"`
}

type FilterConfig struct {
	Secrets   SecretsFilterConfig   `yaml:"secrets"`
	Injection InjectionFilterConfig `yaml:"injection"`
}

type SecretsFilterConfig struct {
	Enabled bool `yaml:"enabled"`
}

type InjectionFilterConfig struct {
	Enabled       bool    `yaml:"enabled"`
	FlagThreshold float64 `yaml:"flag_threshold"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxConns        int32         `yaml:"max_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns URL when set, otherwise a postgres URL assembled from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	MetricsPort   int    `yaml:"metrics_port"`
}

func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             3000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     0, // streams outlive any fixed write deadline
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
			MaxBodyBytes:     64 << 10,
		},
		Upstream: UpstreamConfig{
			BaseURL:                 "https://api.openai.com/v1",
			Model:                   "gpt-3.5-turbo",
			Temperature:             0.7,
			MaxTokens:               1500,
			MaxConcurrent:           50,
			StreamFirstChunkTimeout: 60 * time.Second,
			StreamChunkTimeout:      30 * time.Second,
			HealthFailureThreshold:  5,
			HealthRecoveryInterval:  30 * time.Second,
		},
		Quota: QuotaConfig{
			Backend:       BackendMemory,
			DailyLimit:    2,
			Timezone:      "Local",
			SweepInterval: time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Filter: FilterConfig{
			Secrets: SecretsFilterConfig{Enabled: true},
			Injection: InjectionFilterConfig{
				Enabled:       true,
				FlagThreshold: 0.7,
			},
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "assessment",
			User:            "assessment",
			MaxConns:        10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			PoolSize:  20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "json",
			LogMaxSizeMB:  100,
			LogMaxBackups: 3,
			LogMaxAgeDays: 30,
			MetricsPort:   9090,
		},
	}
}
