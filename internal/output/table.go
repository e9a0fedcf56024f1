// Package output renders catalog tables and live operation progress on the
// terminal. Tables use ASCII plus ANSI colors when stdout is a TTY; progress
// rendering degrades to plain log lines otherwise.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted: stdout
// is a TTY and NO_COLOR is unset.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderPackageTable renders packages with status and popularity columns.
// The input order is preserved; lists arrive pre-sorted by popularity.
func RenderPackageTable(packages []*cask.Package) string {
	if len(packages) == 0 {
		return "No casks found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-30s %-10s %12s\n",
		"Cask", "Name", "Status", "Installs/yr"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, pkg := range packages {
		sb.WriteString(fmt.Sprintf("%-28s %-30s %-10s %12s\n",
			truncate(pkg.ID(), 28),
			truncate(pkg.Info.Name, 30),
			statusLabel(pkg),
			humanize.Comma(int64(pkg.DownloadCount()))))
	}
	return sb.String()
}

func statusLabel(pkg *cask.Package) string {
	switch {
	case pkg.Outdated():
		return colorize(colorYellow, "outdated")
	case pkg.Installed():
		return colorize(colorGreen, "installed")
	case pkg.Info.Disabled:
		return colorize(colorRed, "disabled")
	case pkg.Info.Deprecated:
		return colorize(colorGray, "deprecated")
	default:
		return ""
	}
}

// RenderCategoryTable renders the category index with member counts.
func RenderCategoryTable(categories []cask.CategoryList) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %8s\n", "Category", "Casks"))
	sb.WriteString(strings.Repeat("─", 30))
	sb.WriteString("\n")
	for _, cl := range categories {
		sb.WriteString(fmt.Sprintf("%-20s %8d\n", cl.Category.ID, len(cl.Casks)))
	}
	return sb.String()
}

// RenderEventTable renders history events, newest first.
func RenderEventTable(events []store.Event) string {
	if len(events) == 0 {
		return "No history recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-10s %-8s %-10s %s\n",
		"Cask", "Operation", "Result", "Duration", "When"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, ev := range events {
		result := colorize(colorGreen, "ok")
		if !ev.Success {
			result = colorize(colorRed, "failed")
		}
		sb.WriteString(fmt.Sprintf("%-28s %-10s %-8s %-10s %s\n",
			truncate(ev.PackageID, 28),
			ev.Operation,
			result,
			ev.Duration.Round(time.Millisecond).String(),
			humanize.Time(ev.CreatedAt)))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
