// Package observability provides human-readable output for the CLI's text mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chrolicious/hoolgg-roster/internal/derive"
	"github.com/chrolicious/hoolgg-roster/internal/migrate"
	"github.com/chrolicious/hoolgg-roster/internal/roster"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxFetchesToShow caps the fetch lines printed per character
	maxFetchesToShow = 5
)

var (
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Printer handles formatted output for text mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a bordered box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for i, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			lines[i] = line[:boxWidth-7] + "..."
		}
	}

	divider := strings.Repeat("─", boxWidth-4)
	fmt.Fprintln(p.out, boxStyle.Render(titleStyle.Render(title)+"\n"+divider+"\n"+strings.Join(lines, "\n")))
}

// PrintRoster outputs one line per character with the week header.
func (p *Printer) PrintRoster(view derive.View) {
	if view.RosterDocument == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Week:       %d\n", view.Meta.CurrentWeek))
	sb.WriteString(fmt.Sprintf("Target:     %d ilvl\n", view.WeeklyTarget))
	sb.WriteString(fmt.Sprintf("Characters: %d\n", len(view.Characters)))

	if len(view.Characters) > 0 {
		sb.WriteString("\n")
	}
	for _, c := range view.Characters {
		realm := c.Realm
		if realm == "" {
			realm = "-"
		}
		sb.WriteString(fmt.Sprintf("%3d  %-14s %-12s %6.1f\n", c.ID, c.Name, realm, c.AvgItemLevel))
	}

	p.printBox("ROSTER", sb.String())
}

// PrintSyncReport outputs the per-character outcome of a sync.
func (p *Printer) PrintSyncReport(report roster.SyncReport) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Synced: %d  Failed: %d\n", report.Synced, report.Failed))

	for _, outcome := range report.Results {
		sb.WriteString("\n")
		p.writeOutcome(&sb, outcome)
	}

	p.printBox("SYNC RESULTS", sb.String())
}

// PrintSyncOutcome outputs the result of syncing a single character.
func (p *Printer) PrintSyncOutcome(outcome roster.SyncOutcome) {
	var sb strings.Builder
	p.writeOutcome(&sb, outcome)
	p.printBox("SYNC RESULT", sb.String())
}

func (p *Printer) writeOutcome(sb *strings.Builder, outcome roster.SyncOutcome) {
	mark := "✓"
	if !outcome.Success {
		mark = "✗"
	}
	sb.WriteString(fmt.Sprintf("%s %s (#%d)\n", mark, outcome.Name, outcome.ID))
	if outcome.Error != "" {
		sb.WriteString(fmt.Sprintf("  %s\n", outcome.Error))
	}

	count := min(len(outcome.Fetches), maxFetchesToShow)
	for _, f := range outcome.Fetches[:count] {
		status := "ok"
		switch {
		case f.RateLimited:
			status = "rate limited"
		case !f.Success:
			status = f.Error
		}
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", f.Fetch, status))
	}
	if len(outcome.Fetches) > maxFetchesToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(outcome.Fetches)-maxFetchesToShow))
	}
}

// PrintMigrationReport outputs what a migration pass changed.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintMigrationReport(report migrate.Report) {
	if !report.Changed() {
		fmt.Fprintln(p.out, boxStyle.Render("✅ DOCUMENT IS UP TO DATE"))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Characters:      %d\n", report.Characters))
	sb.WriteString(fmt.Sprintf("Renamed keys:    %d\n", report.RenamedKeys))
	sb.WriteString(fmt.Sprintf("Backfilled:      %d\n", report.Backfilled))
	sb.WriteString(fmt.Sprintf("Normalized keys: %d\n", report.NormalizedKeys))
	sb.WriteString(fmt.Sprintf("Repaired:        %d\n", report.Repaired))

	p.printBox("MIGRATION REPORT", sb.String())
}
