package main

import (
	"errors"
	"fmt"
	"os"

	"outreach/internal/config"
	"outreach/internal/logging"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long: `Writes the defaults, with any OUTREACH_* environment overrides applied,
to the --config path so they can be edited. An existing file is kept unless
--force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := writeConfig(configPath, appConfig, initForce); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

var errConfigExists = errors.New("config file already exists (use --force to overwrite)")

func writeConfig(path string, cfg *config.Config, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s: %w", path, errConfigExists)
		}
		logging.BootWarn("overwriting config file %s", path)
	}
	if err := cfg.Save(path); err != nil {
		logging.BootError("write config %s: %v", path, err)
		return err
	}
	logging.Boot("wrote config file %s", path)
	return nil
}
