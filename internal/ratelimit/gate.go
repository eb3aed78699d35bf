package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/af-corp/assessment-gateway/internal/telemetry"
)

const dayLayout = "2006-01-02"

// Decision is the outcome of a daily quota check.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
	ResetAt   time.Time

	// HoursLeft and MinutesLeft split the time until ResetAt into whole hours
	// and the remaining whole minutes.
	HoursLeft   int
	MinutesLeft int
}

// RetryAfter is the time until the quota resets, relative to now.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Gate enforces a per-client daily request quota. The quota day starts at
// local midnight in the configured location.
type Gate struct {
	store   Store
	limit   func() int64
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLocation sets the time zone used for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithLogger sets the logger used for backend failures and sweeps.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// WithMetrics records admit/reject decisions and backend errors on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a gate over store. limit is read on every check so a
// config reload takes effect immediately.
func NewGate(store Store, limit func() int64, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		limit:  limit,
		loc:    time.Local,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the gate's current time.
func (g *Gate) Now() time.Time { return g.now() }

// Day returns the quota day key for t.
func (g *Gate) Day(t time.Time) string {
	return t.In(g.loc).Format(dayLayout)
}

// nextReset returns the next local midnight after t.
func (g *Gate) nextReset(t time.Time) time.Time {
	local := t.In(g.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, g.loc)
}

// Check admits or rejects a request from clientKey and, when admitted,
// consumes one unit of the client's quota for today. Store failures are
// logged and the request is admitted without being counted.
func (g *Gate) Check(ctx context.Context, clientKey string) Decision {
	now := g.now()
	limit := g.limit()
	day := g.Day(now)
	resetAt := g.nextReset(now)

	d := Decision{Limit: limit, ResetAt: resetAt}
	wait := resetAt.Sub(now)
	d.HoursLeft = int(wait / time.Hour)
	d.MinutesLeft = int((wait % time.Hour) / time.Minute)

	count, allowed, err := g.store.Admit(ctx, clientKey, day, limit, resetAt.Add(time.Hour))
	if err != nil {
		g.logger.Warn("quota store unavailable, admitting request",
			"backend", g.store.Name(),
			"client", clientKey,
			"error", err,
		)
		g.metrics.RecordQuotaBackendError(g.store.Name())
		d.Allowed = true
		d.Remaining = limit
		g.metrics.RecordQuotaDecision(true)
		return d
	}

	d.Allowed = allowed
	d.Count = count
	d.Remaining = limit - count
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	g.metrics.RecordQuotaDecision(allowed)

	if !allowed {
		g.logger.Warn("daily quota exceeded",
			"client", clientKey,
			"day", day,
			"count", count,
			"limit", limit,
			"reset_at", resetAt.Format(time.RFC3339),
		)
	}
	return d
}

// Sweep removes records from days before today. It is a no-op for stores
// whose records expire on their own.
func (g *Gate) Sweep(ctx context.Context) (int, error) {
	sw, ok := g.store.(Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx, g.Day(g.now()))
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (g *Gate) RunSweeper(ctx context.Context, interval time.Duration) {
	if _, ok := g.store.(Sweeper); !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := g.Sweep(ctx)
			if err != nil {
				g.logger.Warn("quota sweep failed", "backend", g.store.Name(), "error", err)
				continue
			}
			if removed > 0 {
				g.logger.Debug("quota sweep", "backend", g.store.Name(), "removed", removed)
			}
		}
	}
}
