package sim

// MultiWriter fans out track, decision, and alert rows to multiple writers.
type MultiWriter struct {
	trackWriters    []TrackWriter
	decisionWriters []DecisionWriter
	alertWriters    []AlertWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(tws []TrackWriter, dws []DecisionWriter, aws []AlertWriter) *MultiWriter {
	return &MultiWriter{trackWriters: tws, decisionWriters: dws, alertWriters: aws}
}

// WriteTrack sends a track row to all writers.
func (mw *MultiWriter) WriteTrack(row TrackRow) error {
	for _, w := range mw.trackWriters {
		if err := w.WriteTrack(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteTracks sends multiple track rows to all writers, using batch mode
// where supported.
func (mw *MultiWriter) WriteTracks(rows []TrackRow) error {
	for _, w := range mw.trackWriters {
		if bw, ok := w.(batchTrackWriter); ok {
			if err := bw.WriteTracks(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteTrack(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteDecision sends a decision row to all decision writers.
func (mw *MultiWriter) WriteDecision(d DecisionRow) error {
	for _, w := range mw.decisionWriters {
		if err := w.WriteDecision(d); err != nil {
			return err
		}
	}
	return nil
}

// WriteDecisions sends multiple decisions to all writers, using batch mode
// where supported.
func (mw *MultiWriter) WriteDecisions(rows []DecisionRow) error {
	for _, w := range mw.decisionWriters {
		if bw, ok := w.(batchDecisionWriter); ok {
			if err := bw.WriteDecisions(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteDecision(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAlert sends an alert row to all alert writers.
func (mw *MultiWriter) WriteAlert(a AlertRow) error {
	for _, w := range mw.alertWriters {
		if err := w.WriteAlert(a); err != nil {
			return err
		}
	}
	return nil
}
