package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/models"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMClassifier tags a subtask with the modality its artifact should take.
type LLMClassifier struct {
	Client llm.Client
	Logger *slog.Logger
}

func (c *LLMClassifier) Classify(ctx context.Context, subtask string) capability.Classification {
	prompt := fmt.Sprintf(`You are a world-class AI modality selector. Choose the best modality for the subtask below: text, code, image, or other.
Respond with the single word only.

Subtask: %s`, subtask)
	raw, err := c.Client.GenerateText(ctx, prompt)
	if err != nil {
		loggerOr(c.Logger).Warn("classifier unavailable, assuming text", "err", err)
		return capability.Classification{Modality: models.ModalityText, Degraded: true}
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return capability.Classification{Modality: models.ModalityText, Degraded: true}
	}
	tag := strings.Trim(fields[0], ".,:;!\"'`*")
	return capability.Classification{Modality: models.NormalizeModality(tag)}
}
