// Package observability provides formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/shortbird/pathweaver/internal/commit"
	"github.com/shortbird/pathweaver/internal/pipeline"
	"github.com/shortbird/pathweaver/internal/review"
	"github.com/shortbird/pathweaver/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// WithVerbose makes list output show every item instead of the first few.
func (p *Printer) WithVerbose(verbose bool) *Printer {
	p.verbose = verbose
	return p
}

func (p *Printer) limit(n int) int {
	if p.verbose {
		return n
	}
	return min(n, maxItemsToShow)
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintLessons outputs the eligible lessons grouped by quest, plus the quests
// that could not be scanned.
func (p *Printer) PrintLessons(groups []types.QuestLessons, failedQuests []string) {
	var sb strings.Builder

	total := 0
	for _, g := range groups {
		total += len(g.Lessons)
	}
	sb.WriteString(fmt.Sprintf("%d lessons without tasks in %d quests\n", total, len(groups)))

	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("\n%s (%d)\n", g.QuestTitle, len(g.Lessons)))
		count := p.limit(len(g.Lessons))
		for i := 0; i < count; i++ {
			l := g.Lessons[i]
			marker := "•"
			if !l.Published {
				marker = "○"
			}
			sb.WriteString(fmt.Sprintf("  %s %s\n", marker, l.Title))
		}
		if len(g.Lessons) > count {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(g.Lessons)-count))
		}
	}

	if len(failedQuests) > 0 {
		sb.WriteString(fmt.Sprintf("\nCould not scan %d quests: %s\n", len(failedQuests), strings.Join(failedQuests, ", ")))
	}

	p.printBox("ELIGIBLE LESSONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs the result line and warnings of a generation run.
func (p *Printer) PrintSummary(summary *pipeline.GenerationSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(summary.Message())
	if warnings := summary.Warnings(); len(warnings) > 0 {
		sb.WriteString("\n\nWarnings:\n")
		for _, w := range warnings {
			sb.WriteString(fmt.Sprintf("  ! %s\n", w))
		}
	}

	p.printBox("GENERATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPreview outputs the generated tasks per lesson with their acceptance state.
func (p *Printer) PrintPreview(snap *review.Snapshot, lessons []types.Lesson) {
	if snap == nil {
		return
	}

	titles := make(map[string]string, len(lessons))
	for _, l := range lessons {
		titles[l.ID] = l.Title
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d of %d tasks accepted\n", snap.TotalAccepted(), snap.TotalGenerated()))

	for _, lv := range snap.View() {
		title := titles[lv.LessonID]
		if title == "" {
			title = lv.LessonID
		}
		sb.WriteString(fmt.Sprintf("\n%s\n", title))

		count := p.limit(len(lv.Tasks))
		for i := 0; i < count; i++ {
			t := lv.Tasks[i]
			box := "[ ]"
			if t.Accepted {
				box = "[x]"
			}
			sb.WriteString(fmt.Sprintf("  %s %s (%s, %d XP)\n", box, t.Title, t.Pillar, t.XPValue))
		}
		if len(lv.Tasks) > count {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(lv.Tasks)-count))
		}
	}

	p.printBox("PREVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutcome outputs the result of a commit.
func (p *Printer) PrintOutcome(outcome *commit.Outcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(outcome.Message())
	if len(outcome.Errors) > 0 {
		sb.WriteString("\n")
		count := p.limit(len(outcome.Errors))
		for i := 0; i < count; i++ {
			e := outcome.Errors[i]
			sb.WriteString(fmt.Sprintf("\n  ! %s: %v", e.LessonID, e.Cause))
		}
		if len(outcome.Errors) > count {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(outcome.Errors)-count))
		}
	}

	p.printBox("CREATED TASKS", sb.String())
}

// PrintProgress outputs a single progress line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(ev pipeline.ProgressEvent) {
	switch {
	case ev.Total > 0 && ev.Current > 0:
		fmt.Fprintf(p.out, "[%s] %s (%d/%d)\n", ev.Phase, ev.Message, ev.Current, ev.Total)
	default:
		fmt.Fprintf(p.out, "[%s] %s\n", ev.Phase, ev.Message)
	}
}
