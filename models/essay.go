package models

import (
	"time"
)

// MaxCompetencyPoints is the ceiling of every ENEM competency.
const MaxCompetencyPoints = 200

// CompetencyCount is the number of rubric competencies in a report.
const CompetencyCount = 5

// RetrievedPassage is one reference chunk returned by a passage store.
type RetrievedPassage struct {
	Text      string  `json:"text" bson:"text"`
	Source    string  `json:"source" bson:"source"`
	Category  string  `json:"category,omitempty" bson:"category,omitempty"`
	Relevance float64 `json:"relevance" bson:"relevance"`
}

// AssembledContext is the bounded, read-only set of passages shared by every evaluator of a run.
type AssembledContext struct {
	Passages []RetrievedPassage `json:"passages"`
	Budget   int                `json:"budget"`
	Size     int                `json:"size"`
}

// Empty reports whether no passage was assembled.
func (c AssembledContext) Empty() bool {
	return len(c.Passages) == 0
}

// CompetencyScore is the validated result for one rubric competency.
type CompetencyScore struct {
	Competency  int      `json:"competency" bson:"competency"`
	Name        string   `json:"name" bson:"name"`
	Points      int      `json:"points" bson:"points"`
	Rationale   string   `json:"rationale" bson:"rationale"`
	Strengths   []string `json:"strengths" bson:"strengths"`
	Weaknesses  []string `json:"weaknesses" bson:"weaknesses"`
	Suggestions []string `json:"suggestions" bson:"suggestions"`
	Corrections []string `json:"corrections,omitempty" bson:"corrections,omitempty"`
}

// Theme adherence verdicts.
const (
	VerdictAdequate   = "Adequada"
	VerdictTangential = "Tangenciamento"
	VerdictOffTopic   = "Fuga ao tema"
)

// ThemeAdherence tells whether the essay addresses the proposed theme.
type ThemeAdherence struct {
	Adheres         bool     `json:"adheres" bson:"adheres"`
	Verdict         string   `json:"verdict" bson:"verdict"`
	Rationale       string   `json:"rationale" bson:"rationale"`
	Recommendations []string `json:"recommendations,omitempty" bson:"recommendations,omitempty"`
}

// ReportSummary is the overall feedback composed from the five scores.
type ReportSummary struct {
	Text       string   `json:"text" bson:"text"`
	Level      string   `json:"level" bson:"level"`
	Conclusion string   `json:"conclusion" bson:"conclusion"`
	Strongest  int      `json:"strongest" bson:"strongest"`
	Weakest    int      `json:"weakest" bson:"weakest"`
	Priorities []string `json:"priorities" bson:"priorities"`
}

// TextStats are the structural statistics of an essay.
type TextStats struct {
	Words      int `json:"words" bson:"words"`
	Sentences  int `json:"sentences" bson:"sentences"`
	Paragraphs int `json:"paragraphs" bson:"paragraphs"`
}

// EssayReport is the terminal result of a scoring run.
type EssayReport struct {
	ID           string            `json:"id" bson:"_id"`
	RunID        string            `json:"runId" bson:"runId"`
	Theme        string            `json:"theme" bson:"theme"`
	Essay        string            `json:"essay,omitempty" bson:"essay"`
	Total        int               `json:"total" bson:"total"`
	Competencies []CompetencyScore `json:"competencies" bson:"competencies"`
	Adherence    ThemeAdherence    `json:"adherence" bson:"adherence"`
	Summary      ReportSummary     `json:"summary" bson:"summary"`
	Stats        TextStats         `json:"stats" bson:"stats"`
	Grounded     bool              `json:"grounded" bson:"grounded"`
	Provider     string            `json:"provider" bson:"provider"`
	Model        string            `json:"model" bson:"model"`
	CreatedAt    time.Time         `json:"createdAt" bson:"createdAt"`
}

// GradeEssayRequest is the payload accepted by the grading endpoints.
// Blank fields are rejected by the pipeline, not by binding, so they map to the input failure kind.
type GradeEssayRequest struct {
	Theme string `json:"theme"`
	Essay string `json:"essay"`
}

type StructureRequest struct {
	Theme string `json:"theme"`
}

type RepertoireRequest struct {
	Essay string `json:"essay"`
}

// StructureSuggestion is an outline proposed for a theme.
type StructureSuggestion struct {
	Theme              string             `json:"theme"`
	Introduction       string             `json:"introduction"`
	Development        []string           `json:"development"`
	Conclusion         string             `json:"conclusion"`
	Repertoire         []string           `json:"repertoire"`
	SupportingPassages []RetrievedPassage `json:"supportingPassages,omitempty"`
}

// RepertoireAnalysis evaluates the sociocultural repertoire used in an essay.
type RepertoireAnalysis struct {
	Detected    []string `json:"detected"`
	Identified  []string `json:"identified"`
	Assessment  string   `json:"assessment"`
	Suggestions []string `json:"suggestions"`
}
