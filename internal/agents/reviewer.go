package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/models"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMReviewer critiques a validated artifact.
type LLMReviewer struct {
	Client llm.Client
	Logger *slog.Logger
}

type critique struct {
	Issues      *flexString `json:"issues"`
	Suggestions flexString  `json:"suggestions"`
	Rating      flexString  `json:"overall_rating"`
}

func (r *LLMReviewer) Review(ctx context.Context, artifact, purpose string) models.ReviewOutcome {
	log := loggerOr(r.Logger)
	prompt := fmt.Sprintf(`You are a rigorous code reviewer. Review the artifact below, written for: %s
Respond with JSON only: {"issues": "problems that must be fixed, empty if none", "suggestions": "optional improvements", "overall_rating": "score out of 10"}.

Artifact:
%s`, purpose, artifact)
	raw, err := r.Client.GenerateText(ctx, prompt)
	if err != nil {
		log.Warn("reviewer unavailable", "err", err)
		return models.DegradedReview("reviewer unavailable: " + err.Error())
	}
	var c critique
	if !decodeObject(raw, &c) || c.Issues == nil {
		log.Warn("reviewer reply was not structured", "raw", truncate(raw, 200))
		return models.DegradedReview(raw)
	}
	return models.ReviewOutcome{
		Issues:      strings.TrimSpace(string(*c.Issues)),
		Suggestions: strings.TrimSpace(string(c.Suggestions)),
		Rating:      strings.TrimSpace(string(c.Rating)),
	}
}
