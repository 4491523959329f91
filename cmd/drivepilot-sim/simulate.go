package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"drivepilot-sim/internal/admin"
	"drivepilot-sim/internal/audit"
	"drivepilot-sim/internal/config"
	"drivepilot-sim/internal/logging"
	"drivepilot-sim/internal/scenario"
	"drivepilot-sim/internal/sim"
)

var (
	simPrintOnly    bool
	simNoTUI        bool
	simConfigPath   string
	simSchemaPath   string
	simScenarioPath string
	simTick         time.Duration
	simLogFile      string
	simAuditFile    string
	simAdminAddr    string
	simVerbose      bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time obstacle detection simulator",
	Long:  "simulate starts the DP-604 pipeline: simulated sensors feed the fusion estimator, whose tracks drive the response policy engine once per tick.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if simVerbose {
			level = slog.LevelDebug
		}
		log := logging.New(level)

		auditLog, auditCleanup, err := newAuditLog(simAuditFile)
		if err != nil {
			return err
		}
		defer auditCleanup()

		tw, dw, aw, cleanup, err := newWriters(cfg, simPrintOnly, simNoTUI, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		tickInterval := simTick
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			tickInterval = d
		}

		control := &sim.SlogControlSink{Log: log}
		simulator := sim.NewSimulator(cfg.RunID, cfg, auditLog, tw, dw, aw, control, tickInterval)

		scenarioPath := simScenarioPath
		if scenarioPath == "" {
			scenarioPath = cfg.Scenario
		}
		if scenarioPath != "" {
			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			simulator.SetScenario(sc)
			log.Info("scenario loaded", "name", sc.Name, "phases", len(sc.Phases))
		}

		if tui, ok := tw.(*sim.TUIWriter); ok {
			tui.SetSpawner(simulator.SpawnObstacle)
			tui.SetDetectionToggler(simulator.ToggleDetection)
		}

		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		srv := admin.NewServer(simulator)
		go func() {
			log.Info("admin UI listening", "addr", simAdminAddr)
			if tui, ok := tw.(*sim.TUIWriter); ok {
				tui.SetAdminStatus(true)
			}
			if err := srv.Start(simAdminAddr); err != nil && err != http.ErrServerClosed {
				log.Error("admin server failed", "err", err)
			}
		}()

		go simulator.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		log.Info("simulation stopped", "run_id", simulator.RunID())
		return nil
	},
}

// newAuditLog creates the audit log, optionally mirrored to a JSONL file.
func newAuditLog(path string) (*audit.Log, func(), error) {
	if path == "" {
		return audit.New(nil), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return audit.New(f), func() { f.Close() }, nil
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB or TUI")
	simulateCmd.Flags().BoolVar(&simNoTUI, "no-tui", false, "Disable the terminal UI even on a terminal")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simScenarioPath, "scenario", "", "Path to scenario YAML (overrides config)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Pipeline tick interval (e.g. 500ms, 2s)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export track/decision/alert logs (JSONL)")
	simulateCmd.Flags().StringVar(&simAuditFile, "audit-file", "", "Path to export the audit log (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin UI listen address")
	simulateCmd.Flags().BoolVar(&simVerbose, "verbose", false, "Enable debug logging")
}
