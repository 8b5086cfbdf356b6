// Package agents implements every capability on top of an llm.Client.
//
// Each adapter builds a prompt, calls the model and scrapes the reply into
// the typed capability result. Provider errors and unparsable replies are
// logged and turned into degraded results; nothing here returns an error.
package agents

import (
	"log/slog"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
	"github.com/TheHaywire/solid-fortnight/internal/tools"
)

// NewSet wires one LLM adapter per capability. registry may be nil, in which
// case research is answered by the model alone.
func NewSet(client llm.Client, registry *tools.Registry, logger *slog.Logger) capability.Set {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "agents")
	return capability.Set{
		Planner:    &LLMPlanner{Client: client, Logger: logger},
		Classifier: &LLMClassifier{Client: client, Logger: logger},
		Researcher: &LLMResearcher{Client: client, Tools: registry, Logger: logger},
		Generator:  &LLMGenerator{Client: client, Logger: logger},
		Validator:  &LLMValidator{Client: client, Logger: logger},
		Repairer:   &LLMRepairer{Client: client, Logger: logger},
		Reviewer:   &LLMReviewer{Client: client, Logger: logger},
		Documenter: &LLMDocumenter{Client: client, Logger: logger},
		Reflector:  &LLMReflector{Client: client, Logger: logger},
	}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
