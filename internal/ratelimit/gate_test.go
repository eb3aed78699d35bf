package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/af-corp/assessment-gateway/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func fixedLimit(n int64) func() int64 { return func() int64 { return n } }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestGate(store Store, limit int64, clock *fakeClock, opts ...Option) *Gate {
	opts = append([]Option{
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithLogger(quietLogger()),
	}, opts...)
	return NewGate(store, fixedLimit(limit), opts...)
}

type failingStore struct{}

func (failingStore) Name() string { return "broken" }
func (failingStore) Admit(context.Context, string, string, int64, time.Time) (int64, bool, error) {
	return 0, false, errors.New("backend down")
}

func TestGate_DefaultDailyLimit(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	g := newTestGate(NewMemoryStore(), 2, clock)
	ctx := context.Background()

	first := g.Check(ctx, "203.0.113.7")
	second := g.Check(ctx, "203.0.113.7")
	third := g.Check(ctx, "203.0.113.7")

	if !first.Allowed || first.Remaining != 1 {
		t.Errorf("first: allowed=%v remaining=%d", first.Allowed, first.Remaining)
	}
	if !second.Allowed || second.Remaining != 0 {
		t.Errorf("second: allowed=%v remaining=%d", second.Allowed, second.Remaining)
	}
	if third.Allowed {
		t.Error("third request on the same day must be rejected")
	}
	if third.Count != 2 || third.Remaining != 0 {
		t.Errorf("third: count=%d remaining=%d", third.Count, third.Remaining)
	}
}

func TestGate_ResetsAtLocalMidnight(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)}
	g := newTestGate(NewMemoryStore(), 1, clock)
	ctx := context.Background()

	if !g.Check(ctx, "c").Allowed {
		t.Fatal("first request should be admitted")
	}
	if g.Check(ctx, "c").Allowed {
		t.Fatal("second request should be rejected before midnight")
	}

	clock.Advance(2 * time.Minute)
	d := g.Check(ctx, "c")
	if !d.Allowed || d.Count != 1 {
		t.Errorf("expected fresh quota after midnight, got allowed=%v count=%d", d.Allowed, d.Count)
	}
}

func TestGate_TimeLeftUntilReset(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 21, 29, 30, 0, time.UTC)}
	g := newTestGate(NewMemoryStore(), 1, clock)

	d := g.Check(context.Background(), "c")
	want := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	if !d.ResetAt.Equal(want) {
		t.Errorf("expected reset at %s, got %s", want, d.ResetAt)
	}
	// 2h30m30s left: whole hours and whole minutes.
	if d.HoursLeft != 2 || d.MinutesLeft != 30 {
		t.Errorf("expected 2h 30m, got %dh %dm", d.HoursLeft, d.MinutesLeft)
	}
}

func TestGate_LocationDecidesDay(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	// 17:00 UTC is already the next day in UTC+8.
	clock := &fakeClock{t: time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC)}
	g := NewGate(NewMemoryStore(), fixedLimit(1),
		WithClock(clock.Now), WithLocation(shanghai), WithLogger(quietLogger()))

	if got := g.Day(clock.Now()); got != "2026-10-19" {
		t.Errorf("expected day 2026-10-19 in UTC+8, got %s", got)
	}
	d := g.Check(context.Background(), "c")
	if d.HoursLeft != 23 || d.MinutesLeft != 0 {
		t.Errorf("expected 23h 0m until local midnight, got %dh %dm", d.HoursLeft, d.MinutesLeft)
	}
}

func TestGate_FailsOpenOnStoreError(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	clock := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	g := newTestGate(failingStore{}, 2, clock, WithMetrics(metrics))

	for i := 0; i < 5; i++ {
		d := g.Check(context.Background(), "c")
		if !d.Allowed {
			t.Fatalf("check %d: expected fail-open admission", i)
		}
		if d.Remaining != 2 {
			t.Errorf("uncounted admission should report full remaining, got %d", d.Remaining)
		}
	}

	counter, _ := metrics.QuotaBackendErrors.GetMetricWithLabelValues("broken")
	var m dto.Metric
	counter.Write(&m)
	if *m.Counter.Value != 5 {
		t.Errorf("expected 5 backend errors recorded, got %v", *m.Counter.Value)
	}
}

func TestGate_LimitFollowsReload(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	limit := int64(1)
	g := NewGate(NewMemoryStore(), func() int64 { return limit },
		WithClock(clock.Now), WithLocation(time.UTC), WithLogger(quietLogger()))

	g.Check(context.Background(), "c")
	if g.Check(context.Background(), "c").Allowed {
		t.Fatal("expected rejection at limit 1")
	}

	limit = 3
	if !g.Check(context.Background(), "c").Allowed {
		t.Error("expected admission after limit raised to 3")
	}
}

func TestGate_RecordsDecisions(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	clock := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	g := newTestGate(NewMemoryStore(), 1, clock, WithMetrics(metrics))

	g.Check(context.Background(), "c")
	g.Check(context.Background(), "c")

	var m dto.Metric
	admitted, _ := metrics.QuotaDecisionTotal.GetMetricWithLabelValues("admitted")
	admitted.Write(&m)
	if *m.Counter.Value != 1 {
		t.Errorf("expected 1 admitted, got %v", *m.Counter.Value)
	}
	rejected, _ := metrics.QuotaDecisionTotal.GetMetricWithLabelValues("rejected")
	rejected.Write(&m)
	if *m.Counter.Value != 1 {
		t.Errorf("expected 1 rejected, got %v", *m.Counter.Value)
	}
}

func TestGate_Sweep(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	g := newTestGate(store, 2, clock)

	g.Check(context.Background(), "yesterday")
	clock.Advance(24 * time.Hour)
	g.Check(context.Background(), "today")

	removed, err := g.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 || store.Len() != 1 {
		t.Errorf("expected 1 removed and 1 left, got removed=%d left=%d", removed, store.Len())
	}
}

func TestGate_SweepNoopForExpiringStore(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	g := newTestGate(NewRedisStore(nil), 2, clock)
	removed, err := g.Sweep(context.Background())
	if err != nil || removed != 0 {
		t.Errorf("expected no-op sweep, got removed=%d err=%v", removed, err)
	}
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	g := newTestGate(NewMemoryStore(), 2, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestWriteHeaders(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 59, 59, 500_000_000, time.UTC)
	d := Decision{
		Allowed:   false,
		Limit:     2,
		Remaining: 0,
		ResetAt:   time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	}
	h := http.Header{}
	WriteHeaders(h, d, now)

	if h.Get(headerRateLimitRequests) != "2" {
		t.Errorf("limit header = %q", h.Get(headerRateLimitRequests))
	}
	if h.Get(headerRateLimitRemainingRequests) != "0" {
		t.Errorf("remaining header = %q", h.Get(headerRateLimitRemainingRequests))
	}
	if h.Get(headerRateLimitReset) != "2026-10-19T00:00:00Z" {
		t.Errorf("reset header = %q", h.Get(headerRateLimitReset))
	}
	if h.Get(headerRetryAfter) != "1" {
		t.Errorf("Retry-After should round up to 1, got %q", h.Get(headerRetryAfter))
	}

	allowed := http.Header{}
	d.Allowed = true
	WriteHeaders(allowed, d, now)
	if allowed.Get(headerRetryAfter) != "" {
		t.Error("Retry-After must not be set on admitted requests")
	}
}
