package cmd

import (
	"os"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/ui"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "engage",
	Short:   "Peer-to-peer classroom meetings over WebRTC",
	Long:    `Engage connects classroom participants directly to each other over WebRTC in a full mesh: every pair of participants holds its own media connection, with an external broadcast channel used only to exchange the connection handshake. No media ever passes through a server.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
