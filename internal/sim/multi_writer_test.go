package sim

import (
	"testing"
)

// batchRecorder records whether the batch path was taken.
type batchRecorder struct {
	mockTrackWriter
	batches int
}

func (w *batchRecorder) WriteTracks(rows []TrackRow) error {
	w.batches++
	w.Rows = append(w.Rows, rows...)
	return nil
}

func TestMultiWriter_FansOut(t *testing.T) {
	a := &mockTrackWriter{}
	b := &mockTrackWriter{}
	d := &mockDecisionWriter{}
	mw := NewMultiWriter([]TrackWriter{a, b}, []DecisionWriter{d}, nil)

	if err := mw.WriteTrack(TrackRow{TrackID: "t1"}); err != nil {
		t.Fatal(err)
	}
	if len(a.Rows) != 1 || len(b.Rows) != 1 {
		t.Errorf("fan-out rows = %d/%d, want 1/1", len(a.Rows), len(b.Rows))
	}
	if err := mw.WriteDecision(DecisionRow{Action: "no_action"}); err != nil {
		t.Fatal(err)
	}
	if len(d.Rows) != 1 {
		t.Errorf("decision rows = %d, want 1", len(d.Rows))
	}
}

func TestMultiWriter_BatchPreferred(t *testing.T) {
	batch := &batchRecorder{}
	plain := &mockTrackWriter{}
	mw := NewMultiWriter([]TrackWriter{batch, plain}, nil, nil)

	rows := []TrackRow{{TrackID: "t1"}, {TrackID: "t2"}}
	if err := mw.WriteTracks(rows); err != nil {
		t.Fatal(err)
	}
	if batch.batches != 1 {
		t.Errorf("batch-capable writer used %d batches, want 1", batch.batches)
	}
	if len(batch.Rows) != 2 || len(plain.Rows) != 2 {
		t.Errorf("rows = %d/%d, want 2/2", len(batch.Rows), len(plain.Rows))
	}
}
