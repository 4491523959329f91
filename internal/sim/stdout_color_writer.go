// ColorStdoutWriter prints human-friendly, colorized pipeline output to
// STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"drivepilot-sim/internal/config"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

// actionColor maps a policy action to a severity color.
func actionColor(action string) string {
	switch action {
	case "emergency_stop":
		return colorRed
	case "slow_and_alert":
		return colorYellow
	case "navigate_around":
		return colorCyan
	default:
		return colorGreen
	}
}

// classColor maps an obstacle class to a display color.
func classColor(class string) string {
	switch class {
	case "pedestrian":
		return colorRed
	case "animal":
		return colorYellow
	case "static_object":
		return colorBlue
	default:
		return colorGray
	}
}

// ColorStdoutWriter prints track and decision rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicle Speed (m/s):\t%.1f\n", w.cfg.Vehicle.SpeedMPS)
	fmt.Fprintf(tw, "Low Light:\t%t\n", w.cfg.Environment.LowLight)
	fmt.Fprintf(tw, "Pedestrian Threshold:\t%.2f\n", w.cfg.Policy.PedestrianThreshold)
	fmt.Fprintf(tw, "Animal Threshold:\t%.2f\n", w.cfg.Policy.AnimalThreshold)
	fmt.Fprintf(tw, "Static Confidence:\t%.2f\n", w.cfg.Policy.StaticConfidence)
	fmt.Fprintf(tw, "Gating Distance (m):\t%.1f\n", w.cfg.Fusion.GatingDistanceM)
	fmt.Fprintf(tw, "Staleness (ticks):\t%d\n", w.cfg.Fusion.StalenessTicks)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteTrack outputs a single track row in colorized format.
func (w *ColorStdoutWriter) WriteTrack(row TrackRow) error {
	w.once.Do(w.printOverview)

	cColor := classColor(row.Class)
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%strack=%s%s ", colorWhite(), row.TrackID, colorReset)
	fmt.Fprintf(w.out, "%sclass=%s(%.2f)%s ", cColor, row.Class, row.ClassProb, colorReset)
	fmt.Fprintf(w.out, "%sx=%.1f%s ", colorGreen, row.X, colorReset)
	fmt.Fprintf(w.out, "%sy=%.1f%s ", colorYellow, row.Y, colorReset)
	fmt.Fprintf(w.out, "%svx=%.1f vy=%.1f%s ", colorCyan, row.VX, row.VY, colorReset)
	fmt.Fprintf(w.out, "%srange=%.1f%s ", colorMagenta, row.RangeM, colorReset)
	fmt.Fprintf(w.out, "%sage=%d%s", colorGray, row.Age, colorReset)
	if row.Degraded {
		fmt.Fprintf(w.out, " %sdegraded%s", colorRed, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteTracks outputs multiple track rows.
func (w *ColorStdoutWriter) WriteTracks(rows []TrackRow) error {
	for _, r := range rows {
		_ = w.WriteTrack(r)
	}
	return nil
}

// WriteDecision prints a policy decision to STDOUT.
func (w *ColorStdoutWriter) WriteDecision(d DecisionRow) error {
	w.once.Do(w.printOverview)
	label := "DECISION"
	if d.Aggregate {
		label = "CONTROL"
	}
	fmt.Fprintf(w.out, "%s[%s]%s %s%s%s track=%s %saction=%s%s %s\n",
		colorGray, d.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, label, colorReset, d.TrackID,
		actionColor(d.Action), d.Action, colorReset, d.Justification)
	return nil
}

// WriteDecisions prints multiple policy decisions.
func (w *ColorStdoutWriter) WriteDecisions(rows []DecisionRow) error {
	for _, d := range rows {
		_ = w.WriteDecision(d)
	}
	return nil
}

// WriteAlert prints an action transition alert to STDOUT.
func (w *ColorStdoutWriter) WriteAlert(a AlertRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sALERT%s track=%s %s%s -> %s%s %s\n",
		colorGray, a.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, a.TrackID,
		actionColor(a.To), a.From, a.To, colorReset, a.Message)
	return nil
}
