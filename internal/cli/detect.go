package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/pkg/cache"
	"github.com/matzehuels/serverdep/pkg/errors"
	"github.com/matzehuels/serverdep/pkg/manifest"
)

// detectCommand creates the detect command.
func (c *CLI) detectCommand() *cobra.Command {
	var writeCache bool

	cmd := &cobra.Command{
		Use:   "detect [jar]",
		Short: "Print the version embedded in a server jar",
		Long: `Print the version embedded in a server jar's manifest.

Without an argument the configured server jar is read. Nothing is written
unless --write-cache is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			jar := cfg.ServerJarPath()
			if len(args) == 1 {
				jar = absPath(args[0])
			}
			if jar == "" {
				return errors.New(errors.ErrCodeInvalidInput, "no server jar given and install_path is not configured")
			}

			version, err := manifest.ReadVersion(jar, cfg.VersionAttribute)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("detected version", "jar", jar, "version", version)
			fmt.Fprintln(cmd.OutOrStdout(), version)

			if writeCache {
				if err := cache.WriteVersion(cfg.VersionFilePath(), version); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeCache, "write-cache", false, "also record the version in the version cache")
	return cmd
}
