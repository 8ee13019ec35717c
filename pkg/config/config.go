// Package config loads serverdep settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. serverdep.toml in the project directory, or an explicit --config file
//  3. a .env file in the project directory
//  4. SERVERDEP_* process environment variables
//  5. command-line flags the user actually set (applied by the CLI)
//
// Relative paths are resolved against the project directory.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/serverdep/pkg/cache"
	"github.com/matzehuels/serverdep/pkg/decompile"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/manifest"
	"github.com/matzehuels/serverdep/pkg/repository"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// FileName is the project config file looked up in the project directory.
	FileName = "serverdep.toml"

	// StateDir holds everything serverdep writes inside a project.
	StateDir = ".serverdep"

	DefaultGroupID       = "com.hypixel.hytale"
	DefaultArtifactID    = "server"
	DefaultServerSubdir  = "Server"
	DefaultServerJarName = "HytaleServer.jar"
	DefaultIncludePrefix = "com/hypixel/"
)

// Config is the full set of settings for one project.
type Config struct {
	// ProjectDir anchors relative paths. It is never read from the file.
	ProjectDir string `toml:"-"`

	// Server install layout: <InstallPath>/<ServerSubdir>/<ServerJarName>.
	// ServerJar, when set, names the archive directly and wins.
	InstallPath   string `toml:"install_path"`
	ServerSubdir  string `toml:"server_subdir"`
	ServerJarName string `toml:"server_jar_name"`
	ServerJar     string `toml:"server_jar"`

	// Coordinate of the published artifact; the version is detected.
	GroupID    string `toml:"group_id"`
	ArtifactID string `toml:"artifact_id"`

	VersionAttribute string `toml:"version_attribute"`

	// Empty means <project>/.serverdep/repo and
	// <project>/.serverdep/cache/server-version.txt.
	RepositoryDir string `toml:"repository"`
	VersionFile   string `toml:"version_file"`

	IncludePrefix string `toml:"include_prefix"`
	SkipSources   bool   `toml:"skip_sources"`

	Decompiler DecompilerConfig `toml:"decompiler"`
}

// DecompilerConfig configures the Vineflower worker.
type DecompilerConfig struct {
	Java        string `toml:"java"`
	Jar         string `toml:"jar"`
	MaxHeap     string `toml:"max_heap"`
	Indent      string `toml:"indent"`
	IssuePolicy string `toml:"issue_policy"`
}

// Default returns the built-in settings for projectDir.
func Default(projectDir string) *Config {
	return &Config{
		ProjectDir:       projectDir,
		ServerSubdir:     DefaultServerSubdir,
		ServerJarName:    DefaultServerJarName,
		GroupID:          DefaultGroupID,
		ArtifactID:       DefaultArtifactID,
		VersionAttribute: manifest.DefaultVersionAttribute,
		IncludePrefix:    DefaultIncludePrefix,
		Decompiler: DecompilerConfig{
			MaxHeap:     decompile.DefaultMaxHeap,
			Indent:      decompile.DefaultIndent,
			IssuePolicy: string(decompile.DefaultIssuePolicy),
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load builds the config for projectDir. If path is empty the project's
// serverdep.toml is used when present; an explicit path must exist.
// Environment overrides from .env and the process are applied on top.
func Load(projectDir, path string) (*Config, error) {
	cfg := Default(projectDir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(projectDir, FileName)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	env, err := Environment(projectDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Save writes c as TOML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "create %s", path)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "write %s", path)
	}
	return f.Close()
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks settings every command relies on. Failures are
// INVALID_CONFIG.
func (c *Config) Validate() error {
	if err := errors.ValidateGroupID(c.GroupID); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "group_id")
	}
	if err := errors.ValidateSegment("artifact id", c.ArtifactID); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "artifact_id")
	}
	if strings.TrimSpace(c.VersionAttribute) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "version_attribute cannot be empty")
	}
	if err := errors.ValidateEntryPrefix(c.IncludePrefix); err != nil {
		return err
	}
	if _, err := decompile.ParseIssuePolicy(c.Decompiler.IssuePolicy); err != nil {
		return err
	}
	return c.DecompileOptions().Validate()
}

// ValidateForSetup additionally requires what a pipeline run needs: a
// locatable server archive and, unless sources are skipped, a decompiler.
func (c *Config) ValidateForSetup() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ServerJar == "" && c.InstallPath == "" {
		return errors.New(errors.ErrCodeInvalidConfig,
			"server location not set (use --install-path, install_path or SERVERDEP_INSTALL_PATH)")
	}
	if !c.SkipSources && c.Decompiler.Jar == "" {
		return errors.New(errors.ErrCodeInvalidConfig,
			"decompiler jar not set (use --vineflower, [decompiler] jar or SERVERDEP_VINEFLOWER_JAR, or --skip-sources)")
	}
	return nil
}

// =============================================================================
// Derived Values
// =============================================================================

// resolve anchors a relative path at the project directory.
func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectDir, path)
}

// ServerJarPath returns the server archive location.
func (c *Config) ServerJarPath() string {
	if c.ServerJar != "" {
		return c.resolve(c.ServerJar)
	}
	if c.InstallPath == "" {
		return ""
	}
	return filepath.Join(c.resolve(c.InstallPath), c.ServerSubdir, c.ServerJarName)
}

// RepositoryPath returns the local repository root.
func (c *Config) RepositoryPath() string {
	if c.RepositoryDir != "" {
		return c.resolve(c.RepositoryDir)
	}
	return filepath.Join(c.ProjectDir, StateDir, "repo")
}

// VersionFilePath returns the version cache file.
func (c *Config) VersionFilePath() string {
	if c.VersionFile != "" {
		return c.resolve(c.VersionFile)
	}
	return filepath.Join(c.ProjectDir, StateDir, "cache", cache.FileName)
}

// VineflowerJarPath returns the decompiler jar, resolved.
func (c *Config) VineflowerJarPath() string {
	return c.resolve(c.Decompiler.Jar)
}

// DecompileOptions returns the worker options for this config. An empty
// max_heap or indent takes the default.
func (c *Config) DecompileOptions() decompile.Options {
	return decompile.Options{
		Indent:  c.Decompiler.Indent,
		MaxHeap: c.Decompiler.MaxHeap,
	}.WithDefaults()
}

// IssuePolicy returns the parsed issue policy, falling back to the default
// for an invalid value. Call Validate first to reject those.
func (c *Config) IssuePolicy() decompile.IssuePolicy {
	p, err := decompile.ParseIssuePolicy(c.Decompiler.IssuePolicy)
	if err != nil {
		return decompile.DefaultIssuePolicy
	}
	return p
}

// Coordinate returns the artifact coordinate for version.
func (c *Config) Coordinate(version string) repository.Coordinate {
	return repository.Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: version}
}
