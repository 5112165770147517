package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the Reactor CLI version and build details.

Binaries installed with 'go install' report the module version when no
version was stamped at link time.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v := resolveVersion()
			if short {
				fmt.Println(v)
				return
			}

			printBanner()
			fmt.Println()
			info("Version:    %s", v)
			info("Commit:     %s", commit)
			info("Built:      %s", date)
			info("Go version: %s", runtime.Version())
			info("OS/Arch:    %s/%s", runtime.GOOS, runtime.GOARCH)
			fmt.Println()
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

// resolveVersion prefers the linker-stamped version, then the main module
// version recorded by the Go toolchain.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}
