package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/models"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMValidator asks the model to write tests for an artifact and judge it.
type LLMValidator struct {
	Client llm.Client
	Logger *slog.Logger
}

type verdict struct {
	Passed   *bool      `json:"passed"`
	Details  flexString `json:"details"`
	TestCode flexString `json:"test_code"`
}

func (v *LLMValidator) Validate(ctx context.Context, artifact string) models.ValidationOutcome {
	log := loggerOr(v.Logger)
	raw, err := v.Client.GenerateText(ctx, buildValidatePrompt(artifact))
	if err != nil {
		log.Warn("validator unavailable", "err", err)
		return models.ValidationOutcome{Passed: false, Detail: "validator unavailable: " + err.Error(), Degraded: true}
	}
	var vj verdict
	if !decodeObject(raw, &vj) || vj.Passed == nil {
		log.Warn("validator reply was not a verdict", "raw", truncate(raw, 200))
		detail := strings.TrimSpace(raw)
		if detail == "" {
			detail = "validator returned an empty reply"
		}
		return models.ValidationOutcome{Passed: false, Detail: detail, Degraded: true}
	}
	return models.ValidationOutcome{Passed: *vj.Passed, Detail: string(vj.Details), TestCode: string(vj.TestCode)}
}

func buildValidatePrompt(artifact string) string {
	return fmt.Sprintf(`You are a senior QA engineer. Write unit tests for the following artifact and decide whether it is correct.
Respond with JSON only: {"passed": true|false, "details": "what failed or why it passes", "test_code": "the tests you wrote"}.

Artifact:
%s`, artifact)
}
