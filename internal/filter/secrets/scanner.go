package secrets

import (
	"context"
	"sort"
	"strings"

	"github.com/af-corp/assessment-gateway/internal/config"
	"github.com/af-corp/assessment-gateway/internal/filter"
)

// Detection represents a detected secret in text.
type Detection struct {
	PatternName string // e.g. "Wallet Private Key"
	Start       int    // byte offset
	End         int    // byte offset
}

// Scanner scans text for secrets using pre-compiled regex patterns.
type Scanner struct {
	patterns []Pattern
	cfg      func() config.SecretsFilterConfig
}

// NewScanner creates a scanner with the default secret patterns.
func NewScanner(cfg func() config.SecretsFilterConfig) *Scanner {
	return &Scanner{patterns: DefaultPatterns(), cfg: cfg}
}

func (s *Scanner) Name() string { return "secrets" }

func (s *Scanner) Enabled() bool {
	if s.cfg == nil {
		return true
	}
	return s.cfg().Enabled
}

// Scan checks a single text string for secrets and returns all detections
// ordered by position.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		locs := p.Regex.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			detections = append(detections, Detection{
				PatternName: p.Name,
				Start:       loc[0],
				End:         loc[1],
			})
		}
	}
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Start < detections[j].Start
	})
	return detections
}

// Redact replaces every detected secret with [REDACTED:<pattern>]. Where
// detections overlap, the earliest one wins and covers the union.
func (s *Scanner) Redact(text string) (string, []Detection) {
	detections := s.Scan(text)
	if len(detections) == 0 {
		return text, nil
	}

	var b strings.Builder
	pos := 0
	for i := 0; i < len(detections); i++ {
		d := detections[i]
		end := d.End
		for i+1 < len(detections) && detections[i+1].Start < end {
			i++
			if detections[i].End > end {
				end = detections[i].End
			}
		}
		b.WriteString(text[pos:d.Start])
		b.WriteString("[REDACTED:")
		b.WriteString(d.PatternName)
		b.WriteString("]")
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String(), detections
}

// ScanText implements filter.Filter.
func (s *Scanner) ScanText(_ context.Context, text string) filter.Result {
	redacted, detections := s.Redact(text)
	if len(detections) == 0 {
		return filter.Result{Action: filter.ActionPass, FilterName: s.Name()}
	}
	return filter.Result{
		Action:     filter.ActionRedact,
		FilterName: s.Name(),
		Detections: len(detections),
		Text:       redacted,
	}
}
