package cli

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/pkg/config"
	"github.com/matzehuels/serverdep/pkg/errors"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or show the project config",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configShowCommand())

	return cmd
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var (
		force       bool
		installPath string
		vineflower  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a " + config.FileName + " with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFile()
			if err != nil {
				return err
			}
			if fileExists(path) && !force {
				return errors.New(errors.ErrCodeInvalidInput, "%s already exists (use --force to overwrite)", path)
			}
			dir, err := c.project()
			if err != nil {
				return err
			}

			cfg := config.Default(dir)
			cfg.InstallPath = installPath
			cfg.Decompiler.Jar = vineflower
			if err := cfg.Save(path); err != nil {
				return err
			}

			printSuccess("Wrote %s", path)
			if installPath == "" {
				printDetail("Set install_path before running setup.")
			}
			printNextStep("Publish the server jar", appName+" setup")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&installPath, "install-path", "", "server installation directory to record")
	cmd.Flags().StringVar(&vineflower, "vineflower", "", "Vineflower jar to record")
	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config after file, .env and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}
}
