// Package workspace manages the scratch directory used while producing
// sources.
//
// A workspace is created next to the artifact it serves, so finished files
// can be renamed into the repository without crossing filesystems. Its
// name carries a per-run id, which keeps concurrent or crashed runs from
// sharing state.
//
// Removal is guaranteed: [Manager.Do] releases the workspace on every exit
// path, including panics. A removal fault is reported as CLEANUP_FAILED but
// never replaces an error returned by the scoped function.
package workspace

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// Prefix starts every workspace directory name.
const Prefix = ".tmp-"

// Manager creates workspaces under Base.
type Manager struct {
	Base   string
	Logger *log.Logger

	// OnCleanupError, if set, receives every removal fault.
	OnCleanupError func(dir string, err error)

	// OnRelease, if set, is called after every release made by Do.
	OnRelease func(dir string, elapsed time.Duration, err error)
}

// NewManager returns a manager rooted at base. A nil logger discards output.
func NewManager(base string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{Base: base, Logger: logger}
}

// Workspace is one acquired scratch directory.
type Workspace struct {
	Dir   string
	RunID string

	released bool
}

// Path joins elem onto the workspace directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Dir}, elem...)...)
}

// NewRunID returns a fresh run id.
func NewRunID() string { return uuid.NewString() }

// Acquire creates a fresh workspace. An empty runID is replaced by a random
// one. Acquire fails rather than reuse an existing directory.
func (m *Manager) Acquire(runID string) (*Workspace, error) {
	if runID == "" {
		runID = NewRunID()
	}
	if err := errors.ValidateSegment("run id", runID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWorkspace, err, "invalid run id")
	}
	if err := os.MkdirAll(m.Base, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWorkspace, err, "create %s", m.Base)
	}
	dir := filepath.Join(m.Base, Prefix+runID)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWorkspace, err, "create workspace")
	}
	m.logger().Debug("acquired workspace", "dir", dir)
	return &Workspace{Dir: dir, RunID: runID}, nil
}

// Release removes the workspace. Calling it again is a no-op.
func (w *Workspace) Release() error {
	if w.released {
		return nil
	}
	w.released = true
	return removeTree(w.Dir)
}

// Do acquires a workspace, runs fn in it and releases it, whatever fn does.
// If fn panics the workspace is still removed and the panic continues.
//
// The returned error is fn's error when there is one. Otherwise it is the
// CLEANUP_FAILED error, if removal failed.
func (m *Manager) Do(runID string, fn func(*Workspace) error) (err error) {
	w, err := m.Acquire(runID)
	if err != nil {
		return err
	}

	defer func() {
		p := recover()
		start := time.Now()
		cerr := w.Release()
		if m.OnRelease != nil {
			m.OnRelease(w.Dir, time.Since(start), cerr)
		}
		if cerr != nil {
			m.logger().Warn("workspace cleanup failed", "dir", w.Dir, "err", cerr)
			if m.OnCleanupError != nil {
				m.OnCleanupError(w.Dir, cerr)
			}
			if err == nil && p == nil {
				err = cerr
			}
		} else {
			m.logger().Debug("released workspace", "dir", w.Dir)
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(w)
}

func (m *Manager) logger() *log.Logger {
	if m.Logger == nil {
		m.Logger = log.New(io.Discard)
	}
	return m.Logger
}

// removeTree is swapped out by tests that need a removal fault.
var removeTree = RemoveTree

// RemoveTree deletes dir depth-first: all files first, then the emptied
// directories from the deepest up. It keeps going past individual faults
// and reports the first one as CLEANUP_FAILED. A missing dir is not an
// error.
func RemoveTree(dir string) error {
	if _, err := os.Lstat(dir); os.IsNotExist(err) {
		return nil
	}

	var files, dirs []string
	var first error
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if first == nil {
				first = err
			}
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil && first == nil {
		first = walkErr
	}

	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}

	// Deepest first.
	sort.Slice(dirs, func(i, j int) bool {
		return depth(dirs[i]) > depth(dirs[j])
	})
	for _, d := range dirs {
		if err := os.Remove(d); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}

	if first != nil {
		return errors.Wrap(errors.ErrCodeCleanup, first, "remove %s", dir)
	}
	return nil
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}
