package decompile

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// Job is one unit of work for a Worker.
type Job struct {
	Input     string // filtered class archive
	OutputDir string // created if missing
	Options   Options
}

// Worker runs decompilations off the calling goroutine.
type Worker struct {
	Decompiler Decompiler
	Logger     *log.Logger
}

// NewWorker wraps d. A nil logger discards output.
func NewWorker(d Decompiler, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Worker{Decompiler: d, Logger: logger}
}

// Task is a submitted job. Wait is the join point.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc

	result   Result
	err      error
	duration time.Duration

	once sync.Once
}

// Submit starts job and returns immediately. The job runs under a child of
// ctx, so canceling either ctx or the task stops it.
func (w *Worker) Submit(ctx context.Context, job Job) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(t.done)
		defer cancel()
		start := time.Now()
		t.result, t.err = w.run(ctx, job)
		t.duration = time.Since(start)
	}()
	return t
}

// Wait blocks until the job finishes and returns its outcome. Errors are
// DECOMPILE_FAILED.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.result, t.err
}

// Done is closed when the job finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the job to stop. Wait still has to be called to observe the
// outcome.
func (t *Task) Cancel() {
	t.once.Do(t.cancel)
}

// Duration reports how long the job ran. It is zero until Wait returns.
func (t *Task) Duration() time.Duration {
	select {
	case <-t.done:
		return t.duration
	default:
		return 0
	}
}

func (w *Worker) run(ctx context.Context, job Job) (res Result, err error) {
	logger := w.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.New(errors.ErrCodeDecompile, "decompiler panicked: %v", p)
		}
		if r, ok := w.Decompiler.(Resetter); ok {
			if rerr := r.Reset(); rerr != nil {
				logger.Warn("decompiler reset failed", "err", rerr)
			}
		}
	}()

	if w.Decompiler == nil {
		return Result{}, errors.New(errors.ErrCodeDecompile, "no decompiler configured")
	}
	job.Options = job.Options.WithDefaults()
	if err := job.Options.Validate(); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeDecompile, err, "invalid options")
	}
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeDecompile, err, "create %s", job.OutputDir)
	}

	res, err = w.Decompiler.Decompile(ctx, job.Input, job.OutputDir, job.Options)
	if err != nil {
		return res, errors.Wrap(errors.ErrCodeDecompile, err, "decompile %s", job.Input)
	}
	if ctx.Err() != nil {
		return res, errors.Wrap(errors.ErrCodeDecompile, ctx.Err(), "decompile canceled")
	}
	logger.Debug("decompiled", "input", job.Input, "issues", len(res.Issues))
	return res, nil
}
