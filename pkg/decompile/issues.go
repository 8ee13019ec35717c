package decompile

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// IssuePolicy decides what per-entry decompiler problems do to a run.
type IssuePolicy string

const (
	IssuesIgnore IssuePolicy = "ignore" // drop them
	IssuesWarn   IssuePolicy = "warn"   // report them, keep going
	IssuesFail   IssuePolicy = "fail"   // any issue fails the run
)

// DefaultIssuePolicy reports issues without failing.
const DefaultIssuePolicy = IssuesWarn

// ParseIssuePolicy parses a policy name. Empty means the default.
func ParseIssuePolicy(s string) (IssuePolicy, error) {
	switch p := IssuePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultIssuePolicy, nil
	case IssuesIgnore, IssuesWarn, IssuesFail:
		return p, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown issue policy %q (want ignore, warn or fail)", s)
}

// Apply filters issues through the policy. It returns the issues to
// surface as warnings, or a DECOMPILE_FAILED error under IssuesFail.
func (p IssuePolicy) Apply(issues []Issue) ([]Issue, error) {
	switch p {
	case IssuesIgnore:
		return nil, nil
	case IssuesFail:
		if len(issues) > 0 {
			return issues, errors.New(errors.ErrCodeDecompile,
				"%d entries failed to decompile, first: %s", len(issues), describe(issues[0]))
		}
		return nil, nil
	default:
		return issues, nil
	}
}

func describe(i Issue) string {
	if i.Entry != "" && !strings.Contains(i.Message, i.Entry) {
		return i.Entry + ": " + i.Message
	}
	return i.Message
}

// MissingSources returns an issue for every top-level class in classes
// (archive entry names) that has no source file under outputDir. Inner
// classes, whose names contain '$', are rendered into their outer class's
// file and are skipped.
func MissingSources(classes []string, outputDir string) []Issue {
	var issues []Issue
	for _, name := range classes {
		base := path.Base(name)
		if !strings.HasSuffix(base, ".class") || strings.Contains(base, "$") {
			continue
		}
		stem := strings.TrimSuffix(name, ".class")
		if _, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(stem)+".java")); err == nil {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Entry:    stem,
			Message:  "no source generated",
		})
	}
	return issues
}
