package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")) // White bold - headers

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - metadata

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow
)

func statusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusComplete:
		return successStyle
	case models.StatusFailed:
		return errorStyle
	default:
		return warnStyle
	}
}

// renderReport formats a final report for the terminal.
func renderReport(r *models.FinalReport, width int) string {
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Run"), dimStyle.Render(r.RunID))
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Goal:"), wordwrap.String(r.Goal, width-6))
	fmt.Fprintf(&b, "%s %s\n\n", titleStyle.Render("Status:"), statusStyle(r.Status).Render(string(r.Status)))

	b.WriteString(titleStyle.Render("Plan") + "\n")
	for i, s := range r.Plan {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
	}

	if len(r.Results) > 0 {
		b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Results (%d)", len(r.Results))) + "\n")
		for _, res := range r.Results {
			meta := fmt.Sprintf("depth %d, %d attempt(s), %d repair(s)", res.Depth, res.Attempts, res.Repairs)
			if res.Regenerated {
				meta += ", regenerated after review"
			}
			fmt.Fprintf(&b, "%s %s\n", successStyle.Render("✓"), res.Subtask)
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(meta))
			if res.Documentation != "" {
				b.WriteString(indent.String(wordwrap.String(res.Documentation, width-4), 4) + "\n")
			}
		}
	}

	if len(r.Logs) > 0 {
		b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Failures (%d)", len(r.Logs))) + "\n")
		for _, l := range r.Logs {
			fmt.Fprintf(&b, "%s %s\n", errorStyle.Render("✗"), l.Subtask)
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(l.Reason))
			for _, f := range l.FailureHistory {
				b.WriteString(indent.String(wordwrap.String("- "+f, width-6), 4) + "\n")
			}
			if l.Suggestion != "" {
				b.WriteString(indent.String(wordwrap.String("suggestion: "+l.Suggestion, width-4), 4) + "\n")
			}
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n" + titleStyle.Render("Warnings") + "\n")
		for _, w := range r.Warnings {
			line := string(w.Kind) + ": " + w.Message
			if w.Subtask != "" {
				line = w.Subtask + " - " + line
			}
			fmt.Fprintf(&b, "%s %s\n", warnStyle.Render("!"), wordwrap.String(line, width-2))
		}
	}
	return b.String()
}

func renderMemoryList(snap *memory.Snapshot) string {
	if snap.Len() == 0 {
		return dimStyle.Render("memory is empty") + "\n"
	}
	var b strings.Builder
	for i, k := range snap.Keys() {
		rec, _ := snap.Get(k)
		mark := successStyle.Render("✓")
		if !rec.Validation.Passed {
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(&b, "%3d. %s %s %s\n", i+1, mark, k, dimStyle.Render(rec.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

func renderRecord(subtask string, rec memory.Record, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(subtask))
	b.WriteString(titleStyle.Render("Artifact") + "\n" + indent.String(rec.Artifact, 2) + "\n\n")
	b.WriteString(titleStyle.Render("Validation") + "\n")
	fmt.Fprintf(&b, "  passed: %v\n%s\n", rec.Validation.Passed, indent.String(wordwrap.String(rec.Validation.Detail, width-2), 2))
	if rec.Review != nil {
		b.WriteString("\n" + titleStyle.Render("Review") + " " + dimStyle.Render(rec.Review.Rating) + "\n")
		if rec.Review.Issues != "" {
			b.WriteString(indent.String(wordwrap.String("issues: "+rec.Review.Issues, width-2), 2) + "\n")
		}
		if rec.Review.Suggestions != "" {
			b.WriteString(indent.String(wordwrap.String("suggestions: "+rec.Review.Suggestions, width-2), 2) + "\n")
		}
	}
	if rec.Documentation != "" {
		b.WriteString("\n" + titleStyle.Render("Docs") + "\n" + wordwrap.String(rec.Documentation, width) + "\n")
	}
	return b.String()
}
