package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/af-corp/assessment-gateway/internal/config"
	"github.com/af-corp/assessment-gateway/internal/filter"
	"github.com/af-corp/assessment-gateway/internal/httputil"
	"github.com/af-corp/assessment-gateway/internal/locale"
	"github.com/af-corp/assessment-gateway/internal/prompt"
	"github.com/af-corp/assessment-gateway/internal/ratelimit"
	"github.com/af-corp/assessment-gateway/internal/telemetry"
	"github.com/af-corp/assessment-gateway/internal/upstream"
)

// Stream outcomes, used for metrics and the completion log line.
const (
	outcomeCompleted     = "completed"
	outcomeUpstreamError = "upstream_error"
	outcomeClientClosed  = "client_closed"
	outcomeRateLimited   = "rate_limited"
	outcomeInvalid       = "invalid"
)

// Deps are the collaborators of a Handler. Filters, Metrics, Tokens, Health
// and Logger may be nil.
type Deps struct {
	Streamer upstream.Streamer
	Gate     *ratelimit.Gate
	Filters  *filter.Chain
	Config   func() *config.Config
	Metrics  *telemetry.Metrics
	Tokens   *telemetry.TokenCounter
	Health   *upstream.HealthMonitor
	Logger   *slog.Logger
	Version  string
}

// Handler holds dependencies for the assessment HTTP handlers.
type Handler struct {
	streamer upstream.Streamer
	gate     *ratelimit.Gate
	filters  *filter.Chain
	cfg      func() *config.Config
	metrics  *telemetry.Metrics
	tokens   *telemetry.TokenCounter
	health   *upstream.HealthMonitor
	logger   *slog.Logger
	version  string
}

// NewHandler creates a Handler. A nil Logger falls back to slog.Default.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		streamer: d.Streamer,
		gate:     d.Gate,
		filters:  d.Filters,
		cfg:      d.Config,
		metrics:  d.Metrics,
		tokens:   d.Tokens,
		health:   d.Health,
		version:  d.Version,
	}
}

// assessmentRequest mirrors the questionnaire submission. Pointers tell a
// missing field apart from an explicit zero.
type assessmentRequest struct {
	Chain              *int   `json:"chain"`
	ProjectType        *int   `json:"projectType"`
	RevenueSource      *int   `json:"revenueSource"`
	ProjectStage       *int   `json:"projectStage"`
	CoreGoal           *int   `json:"coreGoal"`
	RiskPreference     *int   `json:"riskPreference"`
	ProjectDescription string `json:"projectDescription"`
}

// submission validates the request and converts it to a prompt.Submission.
func (req assessmentRequest) submission() (prompt.Submission, error) {
	fields := []struct {
		key string
		val *int
	}{
		{prompt.Chain.Key(), req.Chain},
		{prompt.ProjectType.Key(), req.ProjectType},
		{prompt.RevenueSource.Key(), req.RevenueSource},
		{prompt.ProjectStage.Key(), req.ProjectStage},
		{prompt.CoreGoal.Key(), req.CoreGoal},
		{prompt.RiskPreference.Key(), req.RiskPreference},
	}
	for _, f := range fields {
		if f.val == nil {
			return prompt.Submission{}, fmt.Errorf("%s is required", f.key)
		}
		if *f.val < 1 {
			return prompt.Submission{}, fmt.Errorf("%s must be a positive integer", f.key)
		}
	}
	return prompt.Submission{
		Chain:              *req.Chain,
		ProjectType:        *req.ProjectType,
		RevenueSource:      *req.RevenueSource,
		ProjectStage:       *req.ProjectStage,
		CoreGoal:           *req.CoreGoal,
		RiskPreference:     *req.RiskPreference,
		ProjectDescription: req.ProjectDescription,
	}, nil
}

// Assessment handles POST /assessment
func (h *Handler) Assessment(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()
	cfg := h.cfg()
	loc := locale.FromAcceptLanguage(r.Header.Get("Accept-Language"))

	// Parse request body
	if cfg.Server.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.Server.MaxBodyBytes)
	}
	defer r.Body.Close()

	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequestError(w, reqID, "Request body too large")
		} else {
			httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		}
		h.metrics.RecordAssessment(telemetry.AssessmentLabels{Outcome: outcomeInvalid, Locale: loc.String()})
		return
	}
	sub, err := req.submission()
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		h.metrics.RecordAssessment(telemetry.AssessmentLabels{Outcome: outcomeInvalid, Locale: loc.String()})
		return
	}

	es, ok := newEventStream(w)
	if !ok {
		h.logger.Error("response writer does not support flushing", "request_id", reqID)
		httputil.WriteInternalError(w, reqID, "Streaming not supported")
		return
	}

	// Daily quota
	clientKey := httputil.ClientKey(r)
	decision := h.gate.Check(r.Context(), clientKey)
	ratelimit.WriteHeaders(w.Header(), decision, h.gate.Now())
	if !decision.Allowed {
		h.logger.Info("assessment rate limited",
			"request_id", reqID,
			"client_key", clientKey,
			"count", decision.Count,
			"limit", decision.Limit,
			"hours_left", decision.HoursLeft,
			"minutes_left", decision.MinutesLeft,
		)
		httputil.WriteQuotaExceeded(w, reqID, httputil.QuotaExceededBody{
			Message:     locale.QuotaExceeded(loc, decision.Limit),
			HoursLeft:   decision.HoursLeft,
			MinutesLeft: decision.MinutesLeft,
			Tip:         locale.RetryTip(loc, decision.HoursLeft, decision.MinutesLeft),
		})
		h.metrics.RecordAssessment(telemetry.AssessmentLabels{Outcome: outcomeRateLimited, Locale: loc.String()})
		return
	}

	// Description filters: secrets are redacted, injection attempts flagged.
	sub.ProjectDescription = h.filterDescription(r, reqID, clientKey, sub.ProjectDescription)

	msgs := prompt.Build(sub, loc)

	es.begin()

	h.logger.Info("assessment started",
		"request_id", reqID,
		"client_key", clientKey,
		"locale", loc.String(),
		"quota_count", decision.Count,
		"quota_limit", decision.Limit,
	)

	res := h.relay(r.Context(), reqID, es, loc, cfg.Upstream, msgs)

	duration := time.Since(receivedAt)
	model := cfg.Upstream.Model
	promptTokens := h.tokens.Count(msgs.System) + h.tokens.Count(msgs.User)
	completionTokens := 0
	if res.completion != "" {
		completionTokens = h.tokens.Count(res.completion)
	}

	h.logger.Info("assessment finished",
		"request_id", reqID,
		"client_key", clientKey,
		"outcome", res.outcome,
		"model", model,
		"fragments", res.fragments,
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens,
		"duration_ms", duration.Milliseconds(),
	)

	h.metrics.RecordAssessment(telemetry.AssessmentLabels{
		Outcome:          res.outcome,
		Locale:           loc.String(),
		Model:            model,
		DurationMs:       float64(duration.Milliseconds()),
		Fragments:        res.fragments,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	})
}

func (h *Handler) filterDescription(r *http.Request, reqID, clientKey, desc string) string {
	text, results := h.filters.Run(r.Context(), desc)
	for _, fr := range results {
		if fr.Action == filter.ActionPass {
			continue
		}
		h.logger.Warn("description filter triggered",
			"request_id", reqID,
			"client_key", clientKey,
			"filter", fr.FilterName,
			"action", string(fr.Action),
			"detections", fr.Detections,
			"score", fr.Score,
		)
		h.metrics.RecordFilterAction(fr.FilterName, string(fr.Action))
	}
	return text
}

type relayResult struct {
	outcome    string
	fragments  int
	completion string
}

// relay pulls fragments from the upstream and forwards each one as it
// arrives. It returns when the upstream ends, fails, or the client goes away.
func (h *Handler) relay(ctx context.Context, reqID string, es *eventStream, loc locale.Locale, ucfg config.UpstreamConfig, msgs prompt.Messages) relayResult {
	stream, err := h.streamer.StreamChat(ctx, upstream.ChatRequest{
		Messages: []upstream.Message{
			{Role: "system", Content: msgs.System},
			{Role: "user", Content: msgs.User},
		},
		Temperature: ucfg.Temperature,
		MaxTokens:   ucfg.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return relayResult{outcome: outcomeClientClosed}
		}
		h.upstreamFailed(es, reqID, loc, err)
		return relayResult{outcome: outcomeUpstreamError}
	}
	defer stream.Close()

	var (
		res        relayResult
		completion strings.Builder
	)
	for {
		fragment, err := stream.Recv()
		if ctx.Err() != nil {
			// Lines already buffered by the stream are not forwarded.
			res.outcome = outcomeClientClosed
			break
		}
		if err == io.EOF {
			if werr := es.done(); werr != nil {
				res.outcome = outcomeClientClosed
			} else {
				res.outcome = outcomeCompleted
			}
			break
		}
		if err != nil {
			h.upstreamFailed(es, reqID, loc, err)
			res.outcome = outcomeUpstreamError
			break
		}
		if werr := es.content(fragment); werr != nil {
			h.logger.Debug("client write failed", "request_id", reqID, "error", werr)
			res.outcome = outcomeClientClosed
			break
		}
		res.fragments++
		completion.WriteString(fragment)
	}
	res.completion = completion.String()
	return res
}

// upstreamFailed sends the single error event for a failed stream. Messages
// reported by the provider are passed through; anything else gets the
// localized fallback.
func (h *Handler) upstreamFailed(es *eventStream, reqID string, loc locale.Locale, err error) {
	message := locale.UpstreamUnavailable(loc)
	kind := "transport"

	var apiErr *upstream.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			message = apiErr.Message
		}
		kind = "status"
		if apiErr.StatusCode == http.StatusOK {
			kind = "in_stream"
		}
	case errors.Is(err, upstream.ErrStreamIdle):
		kind = "idle_timeout"
	case errors.Is(err, upstream.ErrMalformedChunk):
		kind = "malformed"
	}

	h.logger.Error("upstream stream failed", "request_id", reqID, "kind", kind, "error", err)
	h.metrics.RecordUpstreamError(kind)
	if werr := es.fail(message); werr != nil {
		h.logger.Debug("client write failed", "request_id", reqID, "error", werr)
	}
}

// Options handles GET /assessment/options
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	loc := locale.FromAcceptLanguage(r.Header.Get("Accept-Language"))
	if lang := r.URL.Query().Get("lang"); lang != "" {
		loc = locale.Parse(lang)
	}
	httputil.WriteJSON(w, optionsResponse{
		Locale:    loc.String(),
		Questions: prompt.Catalog(loc),
	})
}

type optionsResponse struct {
	Locale    string            `json:"locale"`
	Questions []prompt.Question `json:"questions"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	quota := h.cfg().Quota
	resp := healthResponse{
		Status:       "healthy",
		Version:      h.version,
		QuotaBackend: quota.Backend,
		DailyLimit:   quota.DailyLimit,
	}
	if h.health != nil {
		snap := h.health.Snapshot()
		resp.Upstream = &snap
		if h.health.State() == upstream.StateDegraded {
			resp.Status = "degraded"
		}
	}
	httputil.WriteJSON(w, resp)
}

type healthResponse struct {
	Status       string                   `json:"status"`
	Version      string                   `json:"version"`
	QuotaBackend string                   `json:"quota_backend"`
	DailyLimit   int64                    `json:"daily_limit"`
	Upstream     *upstream.HealthSnapshot `json:"upstream,omitempty"`
}
