// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resumind/internal/format"
	"github.com/jonathan/resumind/internal/scoring"
	"github.com/jonathan/resumind/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to n runes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// PrintProgress writes one upload step as a status line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(message string, failed bool) {
	mark := "•"
	if failed {
		mark = "✗"
	}
	fmt.Fprintf(p.out, "%s %s\n", mark, message)
}

// PrintFeedback outputs the scores and the first tips of each category.
func (p *Printer) PrintFeedback(resume *types.Resume) {
	if resume == nil {
		return
	}

	var sb strings.Builder
	if resume.CompanyName != "" || resume.JobTitle != "" {
		sb.WriteString(fmt.Sprintf("Company:  %s\n", resume.CompanyName))
		sb.WriteString(fmt.Sprintf("Role:     %s\n", resume.JobTitle))
		sb.WriteString("\n")
	}

	fb := resume.Feedback
	switch {
	case fb == nil:
		sb.WriteString("Analysis pending")
		p.printBox("RESUME REVIEW", sb.String())
		return
	case fb.Unparsed():
		sb.WriteString("The answer could not be read as structured feedback:\n")
		sb.WriteString(fb.Raw)
		p.printBox("RESUME REVIEW", sb.String())
		return
	}

	overall := scoring.BadgeFor(fb.OverallScore)
	sb.WriteString(fmt.Sprintf("Overall:  %s/100 (%s)\n", scoring.Display(fb.OverallScore), overall.Label))
	sb.WriteString(fmt.Sprintf("ATS:      %s/100\n", scoring.Display(fb.ATS.Score)))
	for _, c := range fb.Categories() {
		sb.WriteString(fmt.Sprintf("  %-14s %3s/100  %s\n", c.Title, scoring.Display(c.Score), scoring.BadgeFor(c.Score).Label))
	}

	writeTips(&sb, "ATS", fb.ATS.Tips)
	for _, c := range fb.Categories() {
		writeTips(&sb, c.Title, c.Tips)
	}

	p.printBox("RESUME REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

func writeTips(sb *strings.Builder, title string, tips []types.Tip) {
	if len(tips) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s tips:\n", title))
	count := min(len(tips), maxItemsToShow)
	for i := 0; i < count; i++ {
		mark := "!"
		if tips[i].Good() {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", mark, tips[i].Tip))
	}
	if len(tips) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(tips)-maxItemsToShow))
	}
}

// PrintFiles outputs the stored files of a user.
func (p *Printer) PrintFiles(owner string, items []types.FSItem) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Owner: %s\n\n", owner))
	if len(items) == 0 {
		sb.WriteString("No files found.")
		p.printBox("STORED FILES", sb.String())
		return
	}

	var total int64
	for _, item := range items {
		total += item.Size
		sb.WriteString(fmt.Sprintf("%-36s %10s\n", truncate(item.Name, 36), format.FormatBytes(item.Size)))
	}
	sb.WriteString(fmt.Sprintf("\n%d file(s), %s", len(items), format.FormatBytes(total)))
	p.printBox("STORED FILES", sb.String())
}

// PrintWipe outputs the outcome of a wipe.
func (p *Printer) PrintWipe(owner string, deleted int, failed []string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Owner:         %s\n", owner))
	sb.WriteString(fmt.Sprintf("Files deleted: %d\n", deleted))
	if len(failed) > 0 {
		sb.WriteString(fmt.Sprintf("Failed:        %d\n", len(failed)))
		count := min(len(failed), maxItemsToShow)
		for _, f := range failed[:count] {
			sb.WriteString(fmt.Sprintf("  • %s\n", f))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}
	p.printBox("WIPE", strings.TrimSuffix(sb.String(), "\n"))
}
