// emucore is the headless runtime entrypoint: it hosts one emulation
// session and keeps it alive for a transport collaborator to drive. The
// subcommands cover local operation: serving a session, listing
// snapshots and profiles, and a raw-terminal single-step console.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atarist-core/emucore/version"
)

var rootCmd = &cobra.Command{
	Use:          "emucore",
	Short:        "headless Atari ST emulation core",
	Version:      version.Version,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd(), snapshotCmd(), profilesCmd(), debugConsoleCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
