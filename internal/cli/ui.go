package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/serverdep/pkg/decompile"
	"github.com/matzehuels/serverdep/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Run Summary
// =============================================================================

// maxIssuesShown caps the decompile issues listed after a run. The full list
// is in the debug log.
const maxIssuesShown = 10

// printResult prints the files and statistics of a run.
func printResult(r *pipeline.Result) {
	printSuccess("Published %s", StyleTitle.Render(r.Coordinate.Notation()))
	printFile(r.JarPath)
	printFile(r.POMPath)
	if r.SourcesPath != "" {
		printFile(r.SourcesPath)
	}

	printKeyValue("Version", r.Version)
	printKeyValue("Size", formatSize(r.Size))
	printKeyValue("SHA-256", r.SHA256)
	if len(r.Versions) > 1 {
		printKeyValue("Versions", fmt.Sprintf("%d published", len(r.Versions)))
	}

	if r.SourcesSkipped {
		return
	}
	var issues string
	if n := len(r.Issues); n > 0 {
		issues = fmt.Sprintf("%s issues", formatCount(n))
	}
	fmt.Println(formatStats(
		fmt.Sprintf("%s classes", formatCount(r.Classes)),
		fmt.Sprintf("%s sources", formatCount(r.SourceFiles)),
		issues,
	))
}

// printIssues lists up to limit decompile issues, errors first.
func printIssues(issues []decompile.Issue, limit int) {
	if len(issues) == 0 {
		return
	}
	sorted := make([]decompile.Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity == decompile.SeverityError && sorted[j].Severity != decompile.SeverityError
	})

	printInfo("Decompiler reported %s issues", formatCount(len(issues)))
	for i, issue := range sorted {
		if i == limit {
			printDetail("... and %s more", formatCount(len(issues)-limit))
			break
		}
		line := issue.Message
		if issue.Entry != "" {
			line = issue.Entry + ": " + line
		}
		if issue.Severity == decompile.SeverityError {
			fmt.Println("  " + styleIconWarning.Render(iconWarning) + " " + StyleDim.Render(line))
			continue
		}
		printDetail("%s", line)
	}
}

// =============================================================================
// Formatting
// =============================================================================

// formatSize renders a byte count for humans ("12 MB").
func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// formatCount renders a count with thousands separators ("1,234").
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

// formatStats joins parts into one dim " · "-separated line.
func formatStats(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "  " + StyleDim.Render(strings.Join(kept, " · "))
}
