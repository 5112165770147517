package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/harness"
	"github.com/vango-dev/reactor/pkg/reactive"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Replay scenario files against the engine",
		Long: `Replay one or more scenario files and print the trace of effect runs,
computed evaluations and watch callbacks each step produced.

A scenario whose expectations fail still prints its trace; the command
then exits with an error.

Examples:
  reactor run testdata/branch.yaml
  reactor run --json scenarios/*.yaml`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError("run needs at least one scenario file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, nil)

			var failed error
			for _, path := range args {
				s, err := harness.LoadScenario(path)
				if err != nil {
					return err
				}

				result, err := harness.Run(s,
					reactive.WithLogger(logger),
					reactive.WithSweepInterval(cfg.Runtime.SweepInterval),
				)
				if result != nil {
					if printErr := printResult(result, asJSON); printErr != nil {
						return printErr
					}
				}
				if err != nil {
					logger.Error("scenario failed", "scenario", s.Name, "file", path, "error", compactError(err))
					if failed == nil {
						failed = err
					}
				}
			}
			return failed
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func printResult(result *harness.Result, asJSON bool) error {
	if !asJSON {
		fmt.Print(result.Text())
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
