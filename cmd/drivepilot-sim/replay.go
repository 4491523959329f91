package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"drivepilot-sim/internal/config"
	"drivepilot-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayNoTUI     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded track log file",
	Long:  "replay feeds track rows from a log file back into GreptimeDB or STDOUT, preserving the recorded timing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		writer, cleanup, err := newTrackWriter(&config.SimulationConfig{}, replayPrintOnly, replayNoTUI)
		if err != nil {
			return err
		}
		defer cleanup()
		return sim.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to track log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	replayCmd.Flags().BoolVar(&replayNoTUI, "no-tui", false, "Disable the terminal UI even on a terminal")
	replayCmd.MarkFlagRequired("input")
}
