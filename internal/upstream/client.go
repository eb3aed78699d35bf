package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/af-corp/assessment-gateway/internal/config"
	"github.com/tidwall/gjson"
)

// ErrStreamIdle is returned when the upstream sends nothing for longer than
// the configured first-chunk or inter-chunk timeout.
var ErrStreamIdle = errors.New("upstream stream idle timeout")

// ErrMalformedChunk is returned when a data line of the stream is not JSON.
var ErrMalformedChunk = errors.New("malformed upstream chunk")

const maxErrorBody = 64 << 10

// APIError is a failure reported by the upstream API, either as a non-200
// response or as an error object inside the stream.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a streaming chat completion request.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Stream yields content fragments in order. Recv returns io.EOF once the
// upstream has finished. Close must be called when the caller is done.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Streamer opens a streaming chat completion.
type Streamer interface {
	StreamChat(ctx context.Context, req ChatRequest) (Stream, error)
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg    atomic.Pointer[config.UpstreamConfig]
	http   *http.Client
	health *HealthMonitor
	logger *slog.Logger
}

// NewHTTPClient builds the transport used for upstream calls. There is no
// overall timeout: streams are bounded by the idle timeouts instead.
func NewHTTPClient(cfg config.UpstreamConfig) *http.Client {
	maxConns := cfg.MaxConcurrent
	if maxConns <= 0 {
		maxConns = 50
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        maxConns,
			MaxIdleConnsPerHost: maxConns,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// NewClient creates a client. health may be nil.
func NewClient(cfg config.UpstreamConfig, httpClient *http.Client, health *HealthMonitor, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{http: httpClient, health: health, logger: logger}
	c.Reconfigure(cfg)
	return c
}

// Reconfigure swaps the endpoint settings used by subsequent calls.
func (c *Client) Reconfigure(cfg config.UpstreamConfig) {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c.cfg.Store(&cfg)
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Load().Model
}

type chatRequestBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// StreamChat sends req with stream enabled and returns once the upstream has
// answered with response headers.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (Stream, error) {
	cfg := c.cfg.Load()

	data, err := json.Marshal(chatRequestBody{
		Model:       cfg.Model,
		Messages:    req.Messages,
		Stream:      true,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	idle := newIdleTimer(cfg.StreamFirstChunkTimeout, cancel)

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		idle.stop()
		cancel()
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	for k, v := range cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		idle.stop()
		cancel()
		if idle.fired() {
			c.recordFailure(ErrStreamIdle)
			return nil, ErrStreamIdle
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.recordFailure(err)
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		idle.stop()
		cancel()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
		c.recordFailure(apiErr)
		return nil, apiErr
	}

	return newSSEStream(ctx, resp.Body, cancel, idle, cfg.StreamChunkTimeout, c), nil
}

func (c *Client) recordFailure(err error) {
	c.logger.Warn("upstream call failed", "error", err)
	if c.health != nil {
		c.health.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.health != nil {
		c.health.RecordSuccess()
	}
}

// errorMessage extracts error.message from an OpenAI-style error body,
// falling back to the raw body.
func errorMessage(body []byte, status int) string {
	if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
		return msg
	}
	if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		return msg
	}
	if raw := strings.TrimSpace(string(body)); raw != "" {
		if len(raw) > 512 {
			raw = raw[:512]
		}
		return raw
	}
	return fmt.Sprintf("upstream returned status %d", status)
}
