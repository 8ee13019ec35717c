package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/serverdep/pkg/archive"
	"github.com/matzehuels/serverdep/pkg/buildinfo"
	"github.com/matzehuels/serverdep/pkg/cache"
	"github.com/matzehuels/serverdep/pkg/decompile"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/manifest"
	"github.com/matzehuels/serverdep/pkg/observability"
	"github.com/matzehuels/serverdep/pkg/repository"
	"github.com/matzehuels/serverdep/pkg/workspace"
)

// Runner executes pipeline runs.
//
// The Runner holds no per-run state, so one Runner may serve several runs.
// Runs for the same coordinate must not overlap; the pipeline does no
// locking of its own.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Logger: logger}
}

// Execute runs the pipeline.
//
// Errors before publication return a nil Result and leave the repository
// and the version cache untouched. A sources-stage failure returns the
// Result together with the error; check [errors.IsSourcesStage] on its code
// or [Result.Complete] to tell the cases apart.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()

	result := &Result{RunID: opts.RunID, ServerJar: opts.JarPath()}
	logger.Debug("starting run", "run", opts.RunID, "jar", result.ServerJar, "agent", buildinfo.UserAgent())

	if err := canceled(ctx); err != nil {
		return nil, err
	}

	// Stage 1: Extract
	var version string
	d, err := r.stage(ctx, observability.StageExtract, func() (err error) {
		version, err = manifest.ReadVersion(result.ServerJar, opts.VersionAttribute)
		return err
	})
	if err != nil {
		return nil, err
	}
	coord := opts.Coordinate(version)
	if err := coord.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "cannot publish version %q", version)
	}
	result.Version = version
	result.Coordinate = coord
	result.Stats.ExtractTime = d
	logger.Info("detected version", "version", version, "duration", d)

	// Stage 2: Cache
	if opts.VersionFile != "" {
		_, err := r.stage(ctx, observability.StageCache, func() error {
			return cache.WriteVersion(opts.VersionFile, version)
		})
		observability.Cache().OnCacheWrite(ctx, version, err)
		if err != nil {
			logger.Warn("version cache not updated", "path", opts.VersionFile, "err", err)
			result.Warnings = append(result.Warnings, err)
		} else {
			logger.Debug("cached version", "path", opts.VersionFile)
		}
	}

	if err := canceled(ctx); err != nil {
		return nil, err
	}

	// Stage 3: Publish
	var pub *repository.Published
	d, err = r.stage(ctx, observability.StagePublish, func() (err error) {
		pub, err = repository.NewPublisher(opts.RepositoryDir, logger).Publish(coord, result.ServerJar)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.JarPath = pub.JarPath
	result.POMPath = pub.POMPath
	result.MetadataPath = pub.MetadataPath
	result.SHA256 = pub.SHA256
	result.Size = pub.Size
	result.Versions = pub.Versions
	result.Stats.PublishTime = d
	logger.Info("published artifact",
		"coordinate", coord.Notation(),
		"sha256", pub.SHA256,
		"duration", d)

	if opts.SkipSources {
		result.SourcesSkipped = true
		result.Stats.TotalTime = time.Since(start)
		logger.Info("skipped sources")
		return result, nil
	}

	// Stage 4: Sources
	if err := r.sources(ctx, opts, result); err != nil {
		result.SourcesErr = err
		result.Stats.TotalTime = time.Since(start)
		if ctx.Err() != nil {
			return result, errors.Wrap(errors.ErrCodeCanceled, err, "run canceled")
		}
		logger.Warn("sources not published", "err", err)
		return result, err
	}

	result.Stats.TotalTime = time.Since(start)
	logger.Info("published sources",
		"path", result.SourcesPath,
		"files", result.SourceFiles,
		"issues", len(result.Issues),
		"duration", result.Stats.TotalTime)
	return result, nil
}

// sources runs filter, decompile and package inside a fresh workspace and
// installs the sources jar. The workspace is gone when it returns.
func (r *Runner) sources(ctx context.Context, opts Options, result *Result) error {
	logger := opts.Logger
	coord := result.Coordinate

	base := opts.WorkspaceDir
	if base == "" {
		base = coord.ArtifactDir(opts.RepositoryDir)
	}
	mgr := workspace.NewManager(base, logger)
	mgr.OnCleanupError = func(_ string, err error) {
		result.CleanupErr = err
	}
	mgr.OnRelease = func(_ string, elapsed time.Duration, err error) {
		result.Stats.CleanupTime = elapsed
		hooks := observability.Pipeline()
		hooks.OnStageStart(ctx, observability.StageCleanup)
		hooks.OnStageComplete(ctx, observability.StageCleanup, elapsed, err)
	}

	err := mgr.Do(opts.RunID, func(ws *workspace.Workspace) error {
		filtered := ws.Path(filteredName)
		srcDir := ws.Path(sourcesDir)

		var fr *archive.FilterResult
		d, err := r.stage(ctx, observability.StageFilter, func() (err error) {
			fr, err = archive.Filter(ctx, result.ServerJar, opts.IncludePrefix, filtered)
			return err
		})
		if err != nil {
			return err
		}
		result.Scanned = fr.Scanned
		result.Classes = len(fr.Kept)
		result.Stats.FilterTime = d
		logger.Info("filtered classes",
			"kept", len(fr.Kept),
			"scanned", fr.Scanned,
			"prefix", opts.IncludePrefix,
			"duration", d)
		if len(fr.Kept) == 0 {
			logger.Warn("no classes matched prefix", "prefix", opts.IncludePrefix)
		}

		d, err = r.stage(ctx, observability.StageDecompile, func() error {
			return r.decompile(ctx, opts, filtered, srcDir, fr.Kept, result)
		})
		if err != nil {
			return err
		}
		result.Stats.DecompileTime = d
		logger.Info("decompiled classes", "issues", len(result.Issues), "duration", d)
		for _, issue := range result.Issues {
			logger.Debug("decompile issue", "entry", issue.Entry, "message", issue.Message)
		}

		if err := canceled(ctx); err != nil {
			return err
		}

		packaged := ws.Path(coord.FileName(repository.SourcesClassifier, repository.Packaging))
		d, err = r.stage(ctx, observability.StagePackage, func() error {
			n, err := archive.PackageSources(ctx, srcDir, packaged)
			if err != nil {
				return err
			}
			dst := coord.Path(opts.RepositoryDir, repository.SourcesClassifier, repository.Packaging)
			if err := repository.Install(packaged, dst); err != nil {
				return errors.Wrap(errors.ErrCodePackage, err, "install sources")
			}
			result.SourceFiles = n
			result.SourcesPath = dst
			return nil
		})
		result.Stats.PackageTime = d
		return err
	})

	if errors.Is(err, errors.ErrCodeCleanup) {
		result.Warnings = append(result.Warnings, err)
		return nil
	}
	return err
}

// decompile submits the filtered archive to a worker and joins on it. The
// issue policy decides whether reported problems fail the stage.
func (r *Runner) decompile(ctx context.Context, opts Options, input, outputDir string, classes []string, result *Result) error {
	hooks := observability.Worker()
	hooks.OnDecompileStart(ctx, input, len(classes))

	task := decompile.NewWorker(opts.Decompiler, opts.Logger).Submit(ctx, decompile.Job{
		Input:     input,
		OutputDir: outputDir,
		Options:   opts.DecompileOptions,
	})
	res, err := task.Wait()
	if err == nil {
		issues := append(res.Issues, decompile.MissingSources(classes, outputDir)...)
		result.Issues, err = opts.IssuePolicy.Apply(issues)
	}

	hooks.OnDecompileComplete(ctx, len(result.Issues), task.Duration(), err)
	return err
}

// stage runs fn between the start and complete hooks and times it.
func (r *Runner) stage(ctx context.Context, s observability.Stage, fn func() error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, s)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, s, d, err)
	return d, err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "run canceled")
	}
	return nil
}
