// Package decompile turns a filtered class archive into a source tree.
//
// The decompiler itself is an external collaborator hidden behind the
// narrow [Decompiler] interface. The production implementation,
// [Vineflower], runs the decompiler as a child JVM with its own heap
// ceiling, so a crash or runaway allocation cannot take the caller down.
//
// A [Worker] runs one decompilation off the calling goroutine and hands
// back a [Task]. The task is a join point, not fire-and-forget: callers
// must Wait before packaging the output or removing the workspace.
//
// # Usage
//
//	w := decompile.NewWorker(&decompile.Vineflower{Jar: jar}, logger)
//	task := w.Submit(ctx, decompile.Job{Input: filtered, OutputDir: out, Options: decompile.DefaultOptions()})
//	res, err := task.Wait()
package decompile

import (
	"context"
	"regexp"

	"github.com/matzehuels/serverdep/pkg/errors"
)

const (
	// DefaultIndent is four spaces.
	DefaultIndent = "    "

	// DefaultMaxHeap is the heap ceiling for the decompiler JVM.
	DefaultMaxHeap = "4g"
)

// Options configures a decompilation. Generic signature reconstruction,
// synthetic member removal and whole-archive classpath are always on.
type Options struct {
	Indent  string // indentation unit in generated source
	MaxHeap string // JVM heap ceiling, e.g. "4g" or "512m"
}

// DefaultOptions returns four-space indentation and a 4g heap.
func DefaultOptions() Options {
	return Options{
		Indent:  DefaultIndent,
		MaxHeap: DefaultMaxHeap,
	}
}

// WithDefaults fills each empty field from [DefaultOptions].
func (o Options) WithDefaults() Options {
	if o.Indent == "" {
		o.Indent = DefaultIndent
	}
	if o.MaxHeap == "" {
		o.MaxHeap = DefaultMaxHeap
	}
	return o
}

var heapRegex = regexp.MustCompile(`^[1-9][0-9]*[kKmMgG]?$`)

// ValidateHeap checks a JVM heap size such as "4g" or "512m".
func ValidateHeap(heap string) error {
	if !heapRegex.MatchString(heap) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid heap size %q (want e.g. 4g, 512m)", heap)
	}
	return nil
}

// Validate reports configuration problems as INVALID_CONFIG.
func (o Options) Validate() error {
	if err := ValidateHeap(o.MaxHeap); err != nil {
		return err
	}
	if o.Indent == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "indent cannot be empty")
	}
	for _, r := range o.Indent {
		if r != ' ' && r != '\t' {
			return errors.New(errors.ErrCodeInvalidConfig, "indent may only contain spaces and tabs")
		}
	}
	return nil
}

// Severity grades an Issue.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Issue is a problem the decompiler reported, or an entry it produced no
// source for. Issues do not fail a run by themselves; see [IssuePolicy].
type Issue struct {
	Severity Severity
	Entry    string // archive entry, when known
	Message  string
}

// Result describes a finished decompilation.
type Result struct {
	Issues []Issue
}

// Decompiler produces approximate source for the classes in input and
// writes it under outputDir, one file per top-level class.
type Decompiler interface {
	Decompile(ctx context.Context, input, outputDir string, opts Options) (Result, error)
}

// Resetter is implemented by decompilers that keep state between runs.
// The worker calls Reset after every run, successful or not.
type Resetter interface {
	Reset() error
}

// Func adapts a plain function to the Decompiler interface.
type Func func(ctx context.Context, input, outputDir string, opts Options) (Result, error)

// Decompile calls f.
func (f Func) Decompile(ctx context.Context, input, outputDir string, opts Options) (Result, error) {
	return f(ctx, input, outputDir, opts)
}
