package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		force bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default reactor.yaml",
		Long: `Write a reactor.yaml with default settings to dir (default: the
working directory).

Examples:
  reactor init
  reactor init ./inspector --port 8080
  reactor init --force`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageError("init takes at most one directory, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := runInit(dir, port, force)
			if err != nil {
				return err
			}
			success("Created %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing reactor.yaml")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Inspector port to write")

	return cmd
}

// runInit writes the default configuration into dir and returns its path.
func runInit(dir string, port int, force bool) (string, error) {
	if config.Exists(dir) && !force {
		return "", errors.Newf(errors.CategoryCLI, "%s already exists", filepath.Join(dir, config.ConfigFileName)).
			WithSuggestion("Pass --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	cfg := config.New()
	cfg.Server.Port = port
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		return "", err
	}
	return cfg.Path(), nil
}
