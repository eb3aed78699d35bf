// Package prompt turns a questionnaire submission into the system and user
// messages sent to the model.
package prompt

import (
	"strings"

	"github.com/af-corp/assessment-gateway/internal/locale"
)

// Submission is a validated assessment request. Indices are 1-based.
type Submission struct {
	Chain              int
	ProjectType        int
	RevenueSource      int
	ProjectStage       int
	CoreGoal           int
	RiskPreference     int
	ProjectDescription string
}

// Index returns the submitted option index for a category.
func (s Submission) Index(c Category) int {
	switch c {
	case Chain:
		return s.Chain
	case ProjectType:
		return s.ProjectType
	case RevenueSource:
		return s.RevenueSource
	case ProjectStage:
		return s.ProjectStage
	case CoreGoal:
		return s.CoreGoal
	case RiskPreference:
		return s.RiskPreference
	}
	return 0
}

// Messages is the prompt pair for one evaluation.
type Messages struct {
	System string
	User   string
}

// Build renders the prompt for sub in the given locale.
func Build(sub Submission, l locale.Locale) Messages {
	t := tableFor(l)

	var b strings.Builder
	b.WriteString(t.header)
	for _, c := range Categories() {
		b.WriteString("\n- ")
		b.WriteString(t.questions[c].label)
		b.WriteString(separator(l))
		b.WriteString(Label(l, c, sub.Index(c)))
	}

	if desc := strings.TrimSpace(sub.ProjectDescription); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(t.description)
		b.WriteString("\n")
		b.WriteString(desc)
	}

	return Messages{System: t.system, User: b.String()}
}

func separator(l locale.Locale) string {
	if l == locale.SimplifiedChinese || l == locale.TraditionalChinese {
		return "："
	}
	return ": "
}
