package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "remote-shoot",
	Short: "Remote shooting: signaling relay, photographer and camera consoles",
	Long:  `HTTP signaling relay plus the two peer consoles. Commands: serve, photographer, camera.`,
	RunE:  runServe, // default: run the relay (same as "remote-shoot serve")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(photographerCmd)
	rootCmd.AddCommand(cameraCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
