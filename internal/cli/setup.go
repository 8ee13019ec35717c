package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/pkg/config"
	"github.com/matzehuels/serverdep/pkg/decompile"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/observability"
	"github.com/matzehuels/serverdep/pkg/pipeline"
)

// setupFlags holds the setup command's flags. Only flags the user set
// override the loaded config.
type setupFlags struct {
	installPath string
	serverJar   string
	repository  string
	versionFile string
	prefix      string
	vineflower  string
	java        string
	maxHeap     string
	issues      string
	skipSources bool
	noSpinner   bool
}

// setupCommand creates the setup command.
func (c *CLI) setupCommand() *cobra.Command {
	var flags setupFlags

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Publish the installed server jar into the project repository",
		Long: `Publish the installed server jar into the project repository.

Reads the version from the jar's manifest, records it in the version cache,
copies the jar and a generated POM into <repository>/<group>/<artifact>/<version>/
and builds a decompiled -sources.jar from the configured namespace.

Exit status is 0 on full success, 1 on failure, and 2 when the jar and POM
were published but the sources jar was not.`,
		Example: `  # Using install_path from serverdep.toml
  serverdep setup

  # Explicit locations
  serverdep setup --install-path ~/Hytale/install --vineflower tools/vineflower.jar

  # Binary and POM only
  serverdep setup --skip-sources`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.ValidateForSetup(); err != nil {
				return err
			}
			return c.runSetup(cmd.Context(), cfg, !flags.noSpinner)
		},
	}

	flags.register(cmd)
	return cmd
}

// register adds the flags to cmd.
func (f *setupFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.installPath, "install-path", "", "server installation directory")
	fs.StringVar(&f.serverJar, "server-jar", "", "server jar path (overrides --install-path)")
	fs.StringVar(&f.repository, "repository", "", "local repository directory")
	fs.StringVar(&f.versionFile, "version-file", "", "version cache file")
	fs.StringVar(&f.prefix, "prefix", "", "namespace prefix of classes to decompile (e.g. com/hypixel/)")
	fs.StringVar(&f.vineflower, "vineflower", "", "Vineflower decompiler jar")
	fs.StringVar(&f.java, "java", "", "java executable")
	fs.StringVar(&f.maxHeap, "max-heap", "", "decompiler JVM heap limit (e.g. 4g)")
	fs.StringVar(&f.issues, "issues", "", "decompile issue policy: ignore, warn or fail")
	fs.BoolVar(&f.skipSources, "skip-sources", false, "publish the jar and POM only")
	fs.BoolVar(&f.noSpinner, "no-spinner", false, "disable the progress spinner")
}

// apply copies the flags the user set onto cfg.
func (f *setupFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("install-path") {
		cfg.InstallPath = absPath(f.installPath)
	}
	if changed("server-jar") {
		cfg.ServerJar = absPath(f.serverJar)
	}
	if changed("repository") {
		cfg.RepositoryDir = absPath(f.repository)
	}
	if changed("version-file") {
		cfg.VersionFile = absPath(f.versionFile)
	}
	if changed("prefix") {
		cfg.IncludePrefix = f.prefix
	}
	if changed("vineflower") {
		cfg.Decompiler.Jar = absPath(f.vineflower)
	}
	if changed("java") {
		cfg.Decompiler.Java = f.java
	}
	if changed("max-heap") {
		cfg.Decompiler.MaxHeap = f.maxHeap
	}
	if changed("issues") {
		cfg.Decompiler.IssuePolicy = f.issues
	}
	if changed("skip-sources") {
		cfg.SkipSources = f.skipSources
	}
	return cfg.Validate()
}

// pipelineOptions builds the pipeline options for cfg.
func pipelineOptions(cfg *config.Config) pipeline.Options {
	opts := pipeline.Options{
		ServerJar:        cfg.ServerJarPath(),
		RepositoryDir:    cfg.RepositoryPath(),
		VersionFile:      cfg.VersionFilePath(),
		GroupID:          cfg.GroupID,
		ArtifactID:       cfg.ArtifactID,
		VersionAttribute: cfg.VersionAttribute,
		IncludePrefix:    cfg.IncludePrefix,
		SkipSources:      cfg.SkipSources,
		DecompileOptions: cfg.DecompileOptions(),
		IssuePolicy:      cfg.IssuePolicy(),
	}
	if !cfg.SkipSources {
		opts.Decompiler = &decompile.Vineflower{
			Java: cfg.Decompiler.Java,
			Jar:  cfg.VineflowerJarPath(),
		}
	}
	return opts
}

// runSetup runs the pipeline and prints its outcome.
func (c *CLI) runSetup(ctx context.Context, cfg *config.Config, spin bool) error {
	logger := loggerFromContext(ctx)
	opts := pipelineOptions(cfg)
	opts.Logger = logger
	if v, ok := opts.Decompiler.(*decompile.Vineflower); ok {
		v.Logger = logger
	}

	prog := newProgress(logger)
	var spinner *Spinner
	if spin {
		spinner = newSpinnerWithContext(ctx, "Starting...")
		observability.SetPipelineHooks(spinnerHooks{spinner: spinner})
		defer observability.Reset()
		spinner.Start()
	}

	result, err := pipeline.NewRunner(logger).Execute(ctx, opts)
	if spinner != nil {
		spinner.Stop()
	}

	if result == nil {
		return err
	}

	printResult(result)
	printIssues(result.Issues, maxIssuesShown)
	for _, w := range result.Warnings {
		printWarning("%s", errors.UserMessage(w))
	}

	switch {
	case ExitCode(err) == ExitInterrupted:
		printWarning("Interrupted; the jar and POM are in place")
		return err
	case err != nil:
		printWarning("Sources not published: %s", errors.UserMessage(err))
		printDetail("The jar and POM are in place; rerun setup to retry the sources.")
		return err
	case result.SourcesSkipped:
		prog.done(fmt.Sprintf("Published %s without sources", result.Coordinate))
	default:
		prog.done(fmt.Sprintf("Published %s", result.Coordinate))
	}
	return nil
}
