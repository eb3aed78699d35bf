package injection

import (
	"context"

	"github.com/af-corp/assessment-gateway/internal/config"
	"github.com/af-corp/assessment-gateway/internal/filter"
)

// Detection records a matched injection pattern.
type Detection struct {
	RuleName string
	Severity float64
	Category string
	Start    int
	End      int
}

// Scanner scans project descriptions for prompt injection patterns. Matches
// are only flagged; the description is still forwarded.
type Scanner struct {
	rules []Rule
	cfg   func() config.InjectionFilterConfig
}

// NewScanner creates a prompt injection scanner.
func NewScanner(cfg func() config.InjectionFilterConfig) *Scanner {
	return &Scanner{rules: DefaultRules(), cfg: cfg}
}

func (s *Scanner) Name() string  { return "injection" }
func (s *Scanner) Enabled() bool { return s.cfg().Enabled }

// Scan checks a single text string and returns all detections.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, r := range s.rules {
		locs := r.Regex.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			detections = append(detections, Detection{
				RuleName: r.Name,
				Severity: r.Severity,
				Category: r.Category,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}
	return detections
}

// Score returns the detections in text and the highest severity among them.
func (s *Scanner) Score(text string) ([]Detection, float64) {
	detections := s.Scan(text)
	maxScore := 0.0
	for _, d := range detections {
		if d.Severity > maxScore {
			maxScore = d.Severity
		}
	}
	return detections, maxScore
}

// ScanText implements filter.Filter.
func (s *Scanner) ScanText(_ context.Context, text string) filter.Result {
	detections, score := s.Score(text)
	if score > 0 && score >= s.cfg().FlagThreshold {
		return filter.Result{
			Action:     filter.ActionFlag,
			FilterName: s.Name(),
			Detections: len(detections),
			Score:      score,
		}
	}
	return filter.Result{Action: filter.ActionPass, FilterName: s.Name(), Score: score}
}
