// Tracing instrumentation for runs and subtasks.
package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/TheHaywire/solid-fortnight/internal/orchestrator"

func startRunSpan(ctx context.Context, runID, goal string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "run")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.goal", truncateForLog(goal, 500)),
	)
	return ctx, span
}

func endRunSpan(span trace.Span, status string, subtasks int) {
	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Int("run.subtasks", subtasks),
	)
	if status == "failed" {
		span.SetStatus(codes.Error, "run failed")
	}
	span.End()
}

func startSubtaskSpan(ctx context.Context, runID, subtask string, depth int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "subtask")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("subtask.text", truncateForLog(subtask, 500)),
		attribute.Int("subtask.depth", depth),
	)
	return ctx, span
}

// startStepSpan wraps a single capability call.
func startStepSpan(ctx context.Context, step string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "step."+step)
}

func endStepSpan(span trace.Span, degraded bool) {
	span.SetAttributes(attribute.Bool("step.degraded", degraded))
	span.End()
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return clip(s, max) + "..."
}
