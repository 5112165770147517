package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┌─┐┌─┐┌┬┐┌─┐┬─┐
  ├┬┘├┤ ├─┤│   │ │ │├┬┘
  ┴└─└─┘┴ ┴└─┘ ┴ └─┘┴└─
`

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "reactor",
		Short: "Fine-grained reactive state engine",
		Long: `Reactor tracks which computations read which parts of your state
and re-runs exactly those computations when the state changes.

The CLI replays scenario files against the engine and serves a live
state inspector over HTTP and WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to reactor.yaml (default: search from working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: text, json")

	rootCmd.AddCommand(
		initCmd(),
		runCmd(&flags),
		serveCmd(&flags),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err, flags.logFormat == "json")
		os.Exit(1)
	}
}

// reportError prints err for a human, or as one JSON object per line when
// the logs are JSON so that scripted callers can parse failures.
func reportError(w io.Writer, err error, asJSON bool) {
	if !asJSON {
		errors.PrintError(w, err)
		return
	}
	fmt.Fprintln(w, reactorError(err).FormatJSON())
}

// compactError renders err on one line, with its location when known.
func compactError(err error) string {
	return reactorError(err).FormatCompact()
}

// reactorError returns err as a *ReactorError, keeping the original's code
// when it has one.
func reactorError(err error) *errors.ReactorError {
	var re *errors.ReactorError
	if stderrors.As(err, &re) {
		return re
	}
	return errors.Newf(errors.CategoryCLI, "%s", err.Error())
}

// loadConfig resolves the configuration for a command: an explicit
// --config file, else reactor.yaml in the nearest project root, else the
// defaults. Flags override file values.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	default:
		dir, findErr := os.Getwd()
		if findErr != nil {
			return nil, findErr
		}
		if root, rootErr := config.FindProjectRoot(dir); rootErr == nil {
			dir = root
		}
		cfg, err = config.LoadOrDefault(dir)
	}
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	return cfg, cfg.Validate()
}

// newLogger builds the command logger. Logs go to stderr so that command
// output on stdout stays machine readable.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return cfg.NewLogger(w)
}

// usageError reports invalid command usage.
func usageError(format string, args ...any) error {
	return errors.New("R060").WithDetailf(format, args...)
}

// printBanner prints the Reactor ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
