package main

import (
	"os"

	"golang.org/x/term"

	"drivepilot-sim/internal/config"
	"drivepilot-sim/internal/sim"
)

// newWriters sets up track, decision, and alert writers based on flags and
// env vars. It returns the writers and a cleanup function to close any
// resources.
func newWriters(cfg *config.SimulationConfig, printOnly, noTUI bool, logFile string) (sim.TrackWriter, sim.DecisionWriter, sim.AlertWriter, func(), error) {
	cleanup := func() {}

	tw, dw, aw, baseCleanup, err := baseWriters(cfg, printOnly, noTUI)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cleanup = baseCleanup
	if logFile == "" {
		return tw, dw, aw, cleanup, nil
	}

	fw, err := sim.NewFileWriter(logFile, logFile+".decisions", logFile+".alerts")
	if err != nil {
		baseCleanup()
		return nil, nil, nil, nil, err
	}
	tws := []sim.TrackWriter{tw, fw}
	var dws []sim.DecisionWriter
	if dw != nil {
		dws = append(dws, dw)
	}
	dws = append(dws, fw)
	var aws []sim.AlertWriter
	if aw != nil {
		aws = append(aws, aw)
	}
	aws = append(aws, fw)
	mw := sim.NewMultiWriter(tws, dws, aws)
	combined := func() {
		fw.Close()
		baseCleanup()
	}
	return mw, mw, mw, combined, nil
}

// baseWriters chooses the underlying writers: GreptimeDB when configured,
// the TUI on a terminal, colorized or plain STDOUT otherwise.
func baseWriters(cfg *config.SimulationConfig, printOnly, noTUI bool) (sim.TrackWriter, sim.DecisionWriter, sim.AlertWriter, func(), error) {
	cleanup := func() {}

	if !printOnly && os.Getenv("GREPTIMEDB_ENDPOINT") != "" {
		endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		w, err := sim.NewGreptimeDBWriter(endpoint, database)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return w, w, nil, cleanup, nil
	}

	isTerm := term.IsTerminal(int(os.Stdout.Fd()))
	if isTerm && !noTUI && !printOnly {
		w := sim.NewTUIWriter(cfg)
		return w, w, w, func() { w.Close() }, nil
	}
	if isTerm {
		w := sim.NewColorStdoutWriter(cfg)
		return w, w, w, cleanup, nil
	}
	w := &sim.StdoutWriter{}
	return w, w, w, cleanup, nil
}

// newTrackWriter creates a track writer for replay without decision or
// alert handling.
func newTrackWriter(cfg *config.SimulationConfig, printOnly, noTUI bool) (sim.TrackWriter, func(), error) {
	tw, _, _, cleanup, err := baseWriters(cfg, printOnly, noTUI)
	return tw, cleanup, err
}
