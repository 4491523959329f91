// Writer implementation printing rows to STDOUT as JSON lines.
package sim

import (
	"encoding/json"
	"fmt"
)

// StdoutWriter prints track, decision, and alert rows to STDOUT.
type StdoutWriter struct{}

// WriteTrack outputs a single track row.
func (w *StdoutWriter) WriteTrack(row TrackRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteTracks outputs multiple track rows.
func (w *StdoutWriter) WriteTracks(rows []TrackRow) error {
	for _, r := range rows {
		_ = w.WriteTrack(r)
	}
	return nil
}

// WriteDecision prints a decision row.
func (w *StdoutWriter) WriteDecision(d DecisionRow) error {
	data, _ := json.Marshal(d)
	fmt.Println(string(data))
	return nil
}

// WriteDecisions prints multiple decision rows.
func (w *StdoutWriter) WriteDecisions(rows []DecisionRow) error {
	for _, d := range rows {
		_ = w.WriteDecision(d)
	}
	return nil
}

// WriteAlert prints an alert row.
func (w *StdoutWriter) WriteAlert(a AlertRow) error {
	data, _ := json.Marshal(a)
	fmt.Println(string(data))
	return nil
}
