// Package checkpoint implements the two human checkpoints of a run: plan
// approval before execution and final approval before the run is finalized.
package checkpoint

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// PlanDecision represents the human's decision on a proposed plan.
type PlanDecision int

const (
	PlanApprove PlanDecision = iota
	PlanEdit
	PlanReplan
	PlanAbort
)

// FinalDecision represents the human's decision once all subtasks have run.
type FinalDecision int

const (
	FinalApprove FinalDecision = iota
	FinalEdit
	FinalAbort
)

// Prompter is the interface for human interaction.
type Prompter interface {
	// PlanApproval returns the decision and, for PlanEdit, the replacement plan.
	PlanApproval(plan []string) (PlanDecision, []string)
	FinalApproval(report *models.FinalReport) FinalDecision
}

// AutoApprove approves every checkpoint. Used by non-interactive surfaces.
type AutoApprove struct{}

func (AutoApprove) PlanApproval(plan []string) (PlanDecision, []string) { return PlanApprove, nil }

func (AutoApprove) FinalApproval(report *models.FinalReport) FinalDecision { return FinalApprove }

// TerminalPrompter implements Prompter using line-based terminal I/O.
type TerminalPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewTerminalPrompter creates a TerminalPrompter using stdin/stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

func NewPrompter(r io.Reader, w io.Writer) *TerminalPrompter {
	return &TerminalPrompter{reader: bufio.NewReader(r), writer: w}
}

func (p *TerminalPrompter) PlanApproval(plan []string) (PlanDecision, []string) {
	fmt.Fprintln(p.writer, "\nPlan:")
	for i, s := range plan {
		fmt.Fprintf(p.writer, "  %d. %s\n", i+1, s)
	}
	for {
		fmt.Fprintf(p.writer, "\n(a)pprove / (e)dit / (r)e-plan / (q)uit? ")
		answer, err := p.readAnswer()
		switch answer {
		case "a", "approve", "":
			return PlanApprove, nil
		case "e", "edit":
			fmt.Fprintf(p.writer, "Edited plan (JSON array, YAML list or comma-separated): ")
			edited, _ := p.reader.ReadString('\n')
			steps := ParsePlanEdit(edited)
			if len(steps) == 0 {
				fmt.Fprintln(p.writer, "Empty plan, keeping the current one.")
				return PlanApprove, nil
			}
			return PlanEdit, steps
		case "r", "re-plan", "replan":
			return PlanReplan, nil
		case "q", "quit", "abort":
			return PlanAbort, nil
		}
		if err != nil {
			// Input is closed; nothing more can be asked.
			return PlanAbort, nil
		}
		fmt.Fprintf(p.writer, "Unrecognised answer %q.\n", answer)
	}
}

func (p *TerminalPrompter) FinalApproval(report *models.FinalReport) FinalDecision {
	fmt.Fprintf(p.writer, "\n%d subtask(s) completed, status %s.\n", len(report.Results), report.Status)
	for {
		fmt.Fprintf(p.writer, "(a)pprove / (e)dit / a(b)ort? ")
		answer, err := p.readAnswer()
		switch answer {
		case "a", "approve", "":
			return FinalApprove
		case "e", "edit":
			fmt.Fprintln(p.writer, "Manual editing is not supported here; edit the generated artifacts directly.")
			return FinalEdit
		case "b", "abort", "q", "quit":
			return FinalAbort
		}
		if err != nil {
			return FinalAbort
		}
		fmt.Fprintf(p.writer, "Unrecognised answer %q.\n", answer)
	}
}

// readAnswer reads one line, trimmed and lower-cased. A non-nil error means
// the input ended.
func (p *TerminalPrompter) readAnswer() (string, error) {
	line, err := p.reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(line)), err
}

// ParsePlanEdit accepts a JSON array, a YAML sequence or a comma-separated
// list and returns the non-empty, trimmed subtasks.
func ParsePlanEdit(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return clean(list)
	}
	if err := yaml.Unmarshal([]byte(text), &list); err == nil && len(list) > 0 {
		return clean(list)
	}
	return clean(strings.Split(text, ","))
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ScriptedPrompter implements Prompter with predetermined decisions for testing.
// Once a script is exhausted it approves.
type ScriptedPrompter struct {
	PlanDecisions  []PlanDecision
	EditedPlans    [][]string
	FinalDecisions []FinalDecision

	PlansSeen [][]string
	planIdx   int
	editIdx   int
	finalIdx  int
}

func (p *ScriptedPrompter) PlanApproval(plan []string) (PlanDecision, []string) {
	p.PlansSeen = append(p.PlansSeen, append([]string(nil), plan...))
	if p.planIdx >= len(p.PlanDecisions) {
		return PlanApprove, nil
	}
	d := p.PlanDecisions[p.planIdx]
	p.planIdx++
	if d == PlanEdit && p.editIdx < len(p.EditedPlans) {
		edited := p.EditedPlans[p.editIdx]
		p.editIdx++
		return d, edited
	}
	return d, nil
}

func (p *ScriptedPrompter) FinalApproval(report *models.FinalReport) FinalDecision {
	if p.finalIdx >= len(p.FinalDecisions) {
		return FinalApprove
	}
	d := p.FinalDecisions[p.finalIdx]
	p.finalIdx++
	return d
}
