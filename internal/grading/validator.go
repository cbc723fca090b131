package grading

import (
	"fmt"
	"strings"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// Check identifies a validation rule. Rules run in declaration order.
type Check string

const (
	CheckBounds      Check = "bounds"
	CheckRationale   Check = "rationale"
	CheckDisjoint    Check = "disjoint"
	CheckSuggestions Check = "suggestions"
)

// Validator enforces the invariants of a competency score.
type Validator struct {
	Rubric Rubric
}

// Validate returns nil or a *ValidationFailedError naming the first broken rule.
func (v Validator) Validate(s models.CompetencyScore) error {
	fail := func(c Check, format string, args ...any) error {
		return &ValidationFailedError{Competency: s.Competency, Check: c, Reason: fmt.Sprintf(format, args...)}
	}

	if !v.Rubric.Legal(s.Points) {
		return fail(CheckBounds, "points %d outside 0..%d or not a multiple of %d", s.Points, v.Rubric.Max, v.Rubric.Step)
	}
	if strings.TrimSpace(s.Rationale) == "" {
		return fail(CheckRationale, "rationale is empty")
	}
	weak := make(map[string]bool, len(s.Weaknesses))
	for _, w := range s.Weaknesses {
		weak[w] = true
	}
	for _, st := range s.Strengths {
		if weak[st] {
			return fail(CheckDisjoint, "%q listed as both strength and weakness", st)
		}
	}
	if s.Points < v.Rubric.Max && len(s.Suggestions) == 0 {
		return fail(CheckSuggestions, "score %d below %d without improvement suggestions", s.Points, v.Rubric.Max)
	}
	return nil
}

// needsSuggestions reports whether err is the one failure that earns a regeneration.
func needsSuggestions(err error) bool {
	vf, ok := err.(*ValidationFailedError)
	return ok && vf.Check == CheckSuggestions
}
