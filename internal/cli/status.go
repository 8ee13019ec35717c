package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/pkg/cache"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/manifest"
	"github.com/matzehuels/serverdep/pkg/observability"
	"github.com/matzehuels/serverdep/pkg/repository"
)

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the repository holds the installed server jar",
		Long: `Compare the installed server jar with what the project repository holds.

Reads the installed version, the version cache and maven-metadata.xml, then
checks the published descriptor, the jar digest and the sources jar. Nothing
is written. With --check the command fails when setup has work to do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			jar := cfg.ServerJarPath()
			if jar == "" {
				return errors.New(errors.ErrCodeInvalidInput, "install_path is not configured")
			}
			version, err := manifest.ReadVersion(jar, cfg.VersionAttribute)
			if err != nil {
				return err
			}
			st, err := repository.Inspect(cfg.RepositoryPath(), cfg.Coordinate(version), jar)
			if err != nil {
				return err
			}

			cached, ok, err := cache.ReadVersion(cfg.VersionFilePath())
			observability.Cache().OnCacheRead(ctx, ok, err)
			if err != nil {
				loggerFromContext(ctx).Warn("version cache unreadable", "path", cfg.VersionFilePath(), "err", err)
			}

			printStatus(st, cached)

			reason := st.Stale(!cfg.SkipSources)
			if reason == "" && cached != version {
				reason = "version cache is stale"
			}
			if reason == "" {
				printSuccess("%s is up to date", st.Coordinate.Notation())
				return nil
			}
			printWarning("%s: %s", st.Coordinate.Notation(), reason)
			printNextStep("Publish it", appName+" setup")
			if check {
				return errors.New(errors.ErrCodeInvalidInput, "%s: %s", st.Coordinate.Notation(), reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "exit non-zero when setup has work to do")
	return cmd
}

// printStatus prints what Inspect found.
func printStatus(st *repository.Status, cached string) {
	if cached == "" {
		cached = "none (" + cache.FallbackVersion + ")"
	}
	published := "none"
	if len(st.Versions) > 0 {
		published = strings.Join(st.Versions, ", ")
	}

	printKeyValue("Installed", st.Coordinate.Version)
	printKeyValue("Cached", cached)
	printKeyValue("Published", published)
	printKeyValue("Path", st.RelPath)
	printKeyValue("SHA-256", st.InstalledSHA256)
}
