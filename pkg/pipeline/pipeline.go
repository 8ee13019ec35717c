// Package pipeline provides the materialization pipeline for serverdep.
//
// This package runs every stage that turns an installed server archive into
// a local repository dependency. The CLI is a thin layer over it; embedders
// can drive the same pipeline directly.
//
// # Architecture
//
// The pipeline consists of these stages, run in order:
//
//  1. Extract: read the version from the archive's manifest
//  2. Cache: record the version for build tooling (best-effort)
//  3. Publish: copy the jar, write its POM and refresh maven-metadata.xml
//  4. Sources: filter, decompile and package inside a scratch workspace,
//     then install the sources jar next to the binary
//
// Stages 1 to 3 are fatal on failure. Stage 4 is best-effort: a failure
// there leaves the published jar and POM in place and is returned together
// with the populated [Result].
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    ServerJar:     "/opt/hytale/Server/HytaleServer.jar",
//	    RepositoryDir: "build/repo",
//	    GroupID:       "com.hypixel.hytale",
//	    ArtifactID:    "server",
//	    IncludePrefix: "com/hypixel/",
//	    Decompiler:    &decompile.Vineflower{Jar: "vineflower.jar"},
//	})
//	if err != nil && result == nil {
//	    log.Fatal(err)
//	}
package pipeline

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/serverdep/pkg/decompile"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/manifest"
	"github.com/matzehuels/serverdep/pkg/repository"
	"github.com/matzehuels/serverdep/pkg/workspace"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultServerSubdir is the directory under the install path that
	// holds the server archive.
	DefaultServerSubdir = "Server"

	// DefaultServerJarName is the server archive's file name.
	DefaultServerJarName = "HytaleServer.jar"

	// filteredName and sourcesDir are the workspace-relative scratch paths.
	filteredName = "classes.jar"
	sourcesDir   = "src"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
type Options struct {
	// Archive location. ServerJar wins when set; otherwise the archive is
	// <InstallPath>/<ServerSubdir>/<ServerJarName>.
	ServerJar     string
	InstallPath   string
	ServerSubdir  string
	ServerJarName string

	// Outputs
	RepositoryDir string
	VersionFile   string // empty skips the cache write

	// Coordinate (the version is detected)
	GroupID          string
	ArtifactID       string
	VersionAttribute string

	// Sources stage
	IncludePrefix    string
	SkipSources      bool
	Decompiler       decompile.Decompiler
	DecompileOptions decompile.Options
	IssuePolicy      decompile.IssuePolicy

	// WorkspaceDir is where scratch directories are created. Empty means
	// the artifact directory inside the repository.
	WorkspaceDir string
	RunID        string

	Logger *log.Logger
}

// ValidateAndSetDefaults validates options and fills in defaults.
// Failures are INVALID_INPUT or INVALID_CONFIG; nothing is written.
func (o *Options) ValidateAndSetDefaults() error {
	if o.ServerSubdir == "" {
		o.ServerSubdir = DefaultServerSubdir
	}
	if o.ServerJarName == "" {
		o.ServerJarName = DefaultServerJarName
	}
	if o.ServerJar == "" && o.InstallPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "server jar or install path is required")
	}
	if o.RepositoryDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "repository directory is required")
	}
	if strings.TrimSpace(o.VersionAttribute) == "" {
		o.VersionAttribute = manifest.DefaultVersionAttribute
	}
	if err := errors.ValidateGroupID(o.GroupID); err != nil {
		return err
	}
	if err := errors.ValidateSegment("artifact id", o.ArtifactID); err != nil {
		return err
	}

	if o.RunID == "" {
		o.RunID = workspace.NewRunID()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.SkipSources {
		return nil
	}

	if err := errors.ValidateEntryPrefix(o.IncludePrefix); err != nil {
		return err
	}
	if o.Decompiler == nil {
		return errors.New(errors.ErrCodeInvalidInput, "decompiler is required unless sources are skipped")
	}
	o.DecompileOptions = o.DecompileOptions.WithDefaults()
	if err := o.DecompileOptions.Validate(); err != nil {
		return err
	}
	policy, err := decompile.ParseIssuePolicy(string(o.IssuePolicy))
	if err != nil {
		return err
	}
	o.IssuePolicy = policy
	return nil
}

// JarPath returns the server archive location.
func (o *Options) JarPath() string {
	if o.ServerJar != "" {
		return o.ServerJar
	}
	return filepath.Join(o.InstallPath, o.ServerSubdir, o.ServerJarName)
}

// Coordinate returns the artifact coordinate for version.
func (o *Options) Coordinate(version string) repository.Coordinate {
	return repository.Coordinate{GroupID: o.GroupID, ArtifactID: o.ArtifactID, Version: version}
}

// =============================================================================
// Result - Pipeline Output
// =============================================================================

// Result describes what a run produced. It is returned alongside the error
// when the binary was published but the sources stage failed.
type Result struct {
	RunID      string
	ServerJar  string
	Version    string
	Coordinate repository.Coordinate

	// Repository files
	JarPath      string
	POMPath      string
	MetadataPath string
	SourcesPath  string // empty unless the sources jar was installed
	SHA256       string
	Size         int64
	Versions     []string // all versions listed in maven-metadata.xml

	// Sources stage
	SourcesSkipped bool
	Scanned        int // entries read from the server archive
	Classes        int // class entries kept by the filter
	SourceFiles    int // entries in the sources jar
	Issues         []decompile.Issue

	// Warnings are advisory failures (cache write, cleanup).
	Warnings   []error
	SourcesErr error
	CleanupErr error

	Stats Stats
}

// Stats holds per-stage timings.
type Stats struct {
	ExtractTime   time.Duration
	PublishTime   time.Duration
	FilterTime    time.Duration
	DecompileTime time.Duration
	PackageTime   time.Duration
	CleanupTime   time.Duration
	TotalTime     time.Duration
}

// Complete reports whether the binary, the descriptor and (unless skipped)
// the sources jar were all published.
func (r *Result) Complete() bool {
	if r == nil || r.JarPath == "" || r.SourcesErr != nil {
		return false
	}
	return r.SourcesSkipped || r.SourcesPath != ""
}
