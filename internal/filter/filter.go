package filter

import (
	"context"
)

// Action represents the filter decision.
type Action string

const (
	ActionPass   Action = "pass"
	ActionFlag   Action = "flag"
	ActionRedact Action = "redact"
)

// Result is returned by each filter.
type Result struct {
	Action     Action
	FilterName string
	Detections int
	Score      float64
	// Text is the rewritten input when Action is ActionRedact.
	Text string
}

// Filter is the interface all description filters implement. Filters never
// reject a request: they either pass it, flag it for logging, or rewrite it.
type Filter interface {
	Name() string
	Enabled() bool
	ScanText(ctx context.Context, text string) Result
}

// Chain runs filters in order, feeding each redaction into the next filter.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Run executes all enabled filters in order and returns the final text along
// with every filter's result. Empty text is returned untouched.
func (c *Chain) Run(ctx context.Context, text string) (string, []Result) {
	if c == nil || text == "" {
		return text, nil
	}
	var results []Result
	for _, f := range c.filters {
		if !f.Enabled() {
			continue
		}
		r := f.ScanText(ctx, text)
		results = append(results, r)
		if r.Action == ActionRedact {
			text = r.Text
		}
	}
	return text, results
}
