package models

import (
	"strings"
	"time"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusComplete   Status = "complete"
	// StatusAborted marks a run stopped by a human at either checkpoint. It is
	// never set while subtasks are still executing.
	StatusAborted Status = "aborted"
)

// Modality is the tag returned by the classifier for a subtask.
type Modality string

const (
	ModalityCode Modality = "code"
	ModalityText Modality = "text"
)

// NormalizeModality lower-cases and trims a raw classifier reply.
func NormalizeModality(raw string) Modality {
	return Modality(strings.ToLower(strings.TrimSpace(raw)))
}

// NeedsResearch reports whether generation input should be enriched with
// research findings. Only code and text are considered self-contained.
func (m Modality) NeedsResearch() bool {
	return m != ModalityCode && m != ModalityText
}

type ValidationOutcome struct {
	Passed   bool   `json:"passed"`
	Detail   string `json:"details"`
	TestCode string `json:"test_code,omitempty"`
	// Degraded is set when the validator could not produce a structured
	// verdict and Passed=false stands in for an unknown result.
	Degraded bool `json:"degraded,omitempty"`
}

type ReviewOutcome struct {
	Issues      string `json:"issues"`
	Suggestions string `json:"suggestions"`
	Rating      string `json:"overall_rating"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// RatingUnavailable is the rating used when the reviewer reply was unparsable.
const RatingUnavailable = "N/A"

// DegradedReview builds the fallback review for a reply that could not be parsed:
// the raw text becomes the issues so it is never silently dropped.
func DegradedReview(raw string) ReviewOutcome {
	return ReviewOutcome{Issues: strings.TrimSpace(raw), Suggestions: "", Rating: RatingUnavailable, Degraded: true}
}

func (r ReviewOutcome) HasIssues() bool { return strings.TrimSpace(r.Issues) != "" }

// Feedback renders the review as text suitable for a regeneration prompt.
func (r ReviewOutcome) Feedback() string {
	var b strings.Builder
	b.WriteString("Issues: ")
	b.WriteString(r.Issues)
	if r.Suggestions != "" {
		b.WriteString("\nSuggestions: ")
		b.WriteString(r.Suggestions)
	}
	if r.Rating != "" {
		b.WriteString("\nOverall rating: ")
		b.WriteString(r.Rating)
	}
	return b.String()
}

// SubtaskResult is created once, when a subtask completes successfully.
type SubtaskResult struct {
	Subtask       string            `json:"subtask"`
	Artifact      string            `json:"artifact"`
	Validation    ValidationOutcome `json:"validation"`
	Review        *ReviewOutcome    `json:"review,omitempty"`
	Documentation string            `json:"documentation,omitempty"`
	Depth         int               `json:"depth"`
	Attempts      int               `json:"attempts"`
	Repairs       int               `json:"repairs"`
	Regenerated   bool              `json:"regenerated,omitempty"`
	CompletedAt   time.Time         `json:"completed_at"`
}

// FailureLog records an unresolved subtask together with everything needed to
// diagnose it.
type FailureLog struct {
	Subtask        string    `json:"subtask"`
	Depth          int       `json:"depth"`
	FailureHistory []string  `json:"failures"`
	Suggestion     string    `json:"meta_reflection"`
	Reason         string    `json:"reason"`
	At             time.Time `json:"at"`
}

const (
	ReasonGaveUp          = "reflection did not suggest decomposition"
	ReasonDepthExceeded   = "maximum decomposition depth exceeded"
	ReasonWidthExceeded   = "decomposition produced more subtasks than allowed"
	ReasonEmptyDecomposed = "decomposition produced no subtasks"
	ReasonCancelled       = "cancelled before completion"
)

type WarningKind string

const (
	WarningPersistence WarningKind = "persistence"
	WarningMemoryLoad  WarningKind = "memory_load"
)

type Warning struct {
	Subtask string      `json:"subtask,omitempty"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// FinalReport is the aggregate returned by every run, successful or not.
type FinalReport struct {
	RunID      string           `json:"run_id"`
	Goal       string           `json:"goal"`
	Research   string           `json:"research,omitempty"`
	Plan       []string         `json:"plan"`
	Results    []*SubtaskResult `json:"results"`
	FinalDocs  []string         `json:"final_docs"`
	Logs       []*FailureLog    `json:"logs"`
	Warnings   []Warning        `json:"warnings,omitempty"`
	Status     Status           `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}
