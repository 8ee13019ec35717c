package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/pkg/buildinfo"
	"github.com/matzehuels/serverdep/pkg/config"
	"github.com/matzehuels/serverdep/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "serverdep"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Exit codes returned by main.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitSourcesOnly = 2   // binary published, sources failed
	ExitInterrupted = 130 // shell convention for SIGINT
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Set by persistent flags.
	projectDir string
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "serverdep publishes an installed server jar as a local Maven dependency",
		Long: `serverdep reads the version from an installed server jar, publishes the jar
and a POM into a project-local Maven repository, and builds a decompiled
-sources.jar for IDE navigation.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVarP(&c.projectDir, "project", "C", ".", "project directory")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default <project>/"+config.FileName+")")

	// Register all subcommands
	root.AddCommand(c.setupCommand())
	root.AddCommand(c.detectCommand())
	root.AddCommand(c.coordinateCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// project returns the absolute project directory.
func (c *CLI) project() (string, error) {
	dir := c.projectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "project directory %s", dir)
	}
	return abs, nil
}

// loadConfig loads and validates the project's config.
func (c *CLI) loadConfig() (*config.Config, error) {
	dir, err := c.project()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir, c.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "project", dir, "repository", cfg.RepositoryPath())
	return cfg, nil
}

// configFile returns the config file path commands write to.
func (c *CLI) configFile() (string, error) {
	if c.configPath != "" {
		return filepath.Abs(c.configPath)
	}
	dir, err := c.project()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.FileName), nil
}

// absPath makes a flag value absolute against the working directory, so
// flags mean what the user typed regardless of --project.
func absPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// fileExists reports whether path names an existing file or directory.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// Exit Codes
// =============================================================================

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled), errors.Is(err, errors.ErrCodeCanceled):
		return ExitInterrupted
	case errors.IsSourcesStage(errors.GetCode(err)):
		return ExitSourcesOnly
	}
	return ExitFailure
}
