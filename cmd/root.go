package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/voxcall/voxcall/internal/ui"
	"github.com/voxcall/voxcall/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "voxcall",
	Short:   "Peer-to-peer voice calls over WebRTC, rendezvousing through short room codes",
	Long:    `Voxcall is a command-line tool for two-party voice calls using WebRTC technology. Two participants share a short room code, negotiate a direct peer-to-peer audio session through a lightweight signaling server, and talk without any media ever passing through an intermediary.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
