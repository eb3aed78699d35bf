package config

import "time"

// UpstreamConfig describes the OpenAI-compatible chat completion endpoint the
// assessment prompts are sent to.
type UpstreamConfig struct {
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	Model         string            `yaml:"model"`
	Temperature   float64           `yaml:"temperature"`
	MaxTokens     int               `yaml:"max_tokens"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	Headers       map[string]string `yaml:"headers,omitempty"`

	StreamFirstChunkTimeout time.Duration `yaml:"stream_first_chunk_timeout"`
	StreamChunkTimeout      time.Duration `yaml:"stream_chunk_timeout"`

	HealthFailureThreshold int           `yaml:"health_failure_threshold"`
	HealthRecoveryInterval time.Duration `yaml:"health_recovery_interval"`
}
