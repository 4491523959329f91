package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "drivepilot-sim",
	Short: "DrivePilot obstacle detection simulator",
	Long:  "drivepilot-sim runs the DP-604 sensor fusion and response pipeline against a simulated roadway, with replay utilities for recorded runs.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
}
