package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/pkg/cache"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/observability"
)

// coordinateCommand creates the coordinate command.
func (c *CLI) coordinateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "coordinate",
		Short: "Print the dependency notation for build tooling",
		Long: `Print the group:artifact:version notation of the published server jar.

The version comes from the version cache. Before the first setup the cache
is cold and the dynamic version "+" is printed instead, so a build can
resolve whatever version the repository holds. An unreadable cache is
reported on stderr and also falls back to "+".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			path := cfg.VersionFilePath()

			version, ok, err := cache.ReadVersion(path)
			observability.Cache().OnCacheRead(ctx, ok, err)
			if err != nil {
				loggerFromContext(ctx).Warn("version cache unreadable", "path", path, "err", err)
			}
			if !ok {
				if strict {
					return errors.New(errors.ErrCodeInvalidInput, "no cached version at %s (run serverdep setup)", path)
				}
				version = cache.FallbackVersion
			}

			fmt.Fprintln(cmd.OutOrStdout(), cache.Notation(cfg.GroupID, cfg.ArtifactID, version))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of printing the fallback version")
	return cmd
}
