package decompile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// waitDelay bounds how long Wait lingers on output pipes after the JVM
// has been killed.
const waitDelay = 5 * time.Second

// Vineflower runs the Vineflower decompiler in a child JVM.
//
// The JVM runs in its own process group. When ctx is canceled the whole
// group is killed, which also reclaims the heap; no decompiler state
// outlives a call.
type Vineflower struct {
	Java   string // java executable; "java" from PATH when empty
	Jar    string // path to the Vineflower jar
	Logger *log.Logger
}

// Args returns the java command line for one run. Empty option fields take
// their defaults, so the heap ceiling and indentation are always passed.
func (v *Vineflower) Args(input, outputDir string, opts Options) []string {
	opts = opts.WithDefaults()
	return []string{
		"-Xmx" + opts.MaxHeap,
		"-jar", v.Jar,
		"-dgs=1", "-rsy=1", "-iec=1",
		"-ind=" + opts.Indent,
		"-log=WARN", "--folder", input, outputDir,
	}
}

// Decompile runs the JVM and waits for it. Lines the decompiler logs at
// WARN or ERROR level come back as issues; a non-zero exit is a
// DECOMPILE_FAILED error.
func (v *Vineflower) Decompile(ctx context.Context, input, outputDir string, opts Options) (Result, error) {
	if v.Jar == "" {
		return Result{}, errors.New(errors.ErrCodeDecompile, "vineflower jar not configured")
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeDecompile, err, "decompiler options")
	}
	java := v.Java
	if java == "" {
		java = "java"
	}
	logger := v.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	cmd := exec.CommandContext(ctx, java, v.Args(input, outputDir, opts)...)
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay

	out := &issueWriter{logger: logger}
	cmd.Stdout = out
	cmd.Stderr = out

	logger.Debug("starting decompiler", "java", java, "heap", opts.MaxHeap, "input", input)
	err := cmd.Run()
	out.flush()

	res := Result{Issues: out.issues}
	if ctx.Err() != nil {
		return res, errors.Wrap(errors.ErrCodeDecompile, ctx.Err(), "decompiler interrupted")
	}
	if err != nil {
		if last := out.lastError(); last != "" {
			return res, errors.Wrap(errors.ErrCodeDecompile, err, "decompiler failed: %s", last)
		}
		return res, errors.Wrap(errors.ErrCodeDecompile, err, "decompiler failed")
	}
	return res, nil
}

// issueWriter splits decompiler output into lines and keeps the ones
// carrying a WARN or ERROR marker.
type issueWriter struct {
	logger *log.Logger

	mu     sync.Mutex
	buf    bytes.Buffer
	issues []Issue
}

func (w *issueWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.line(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (w *issueWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.line(w.buf.String())
		w.buf.Reset()
	}
}

func (w *issueWriter) line(line string) {
	if issue, ok := ParseIssue(line); ok {
		w.issues = append(w.issues, issue)
		w.logger.Debug("decompiler", "severity", issue.Severity, "msg", issue.Message)
		return
	}
	if strings.TrimSpace(line) != "" {
		w.logger.Debug("decompiler", "out", line)
	}
}

func (w *issueWriter) lastError() string {
	for i := len(w.issues) - 1; i >= 0; i-- {
		if w.issues[i].Severity == SeverityError {
			return w.issues[i].Message
		}
	}
	return ""
}

// ParseIssue recognizes a decompiler log line such as
// "WARN:  Could not decompile com/example/Foo". Indentation is ignored.
func ParseIssue(line string) (Issue, bool) {
	trimmed := strings.TrimSpace(line)
	for _, m := range []struct {
		prefix   string
		severity Severity
	}{
		{"ERROR:", SeverityError},
		{"WARN:", SeverityWarn},
	} {
		if rest, ok := strings.CutPrefix(trimmed, m.prefix); ok {
			msg := strings.TrimSpace(rest)
			return Issue{Severity: m.severity, Entry: entryOf(msg), Message: msg}, true
		}
	}
	return Issue{}, false
}

// entryOf pulls a class path like "com/example/Foo" out of a message.
func entryOf(msg string) string {
	for _, field := range strings.Fields(msg) {
		field = strings.Trim(field, "'\"`,:;()")
		if strings.Contains(field, "/") && !strings.Contains(field, "://") {
			return strings.TrimSuffix(field, ".class")
		}
	}
	return ""
}

// String implements fmt.Stringer.
func (v *Vineflower) String() string {
	return fmt.Sprintf("vineflower(%s)", v.Jar)
}
