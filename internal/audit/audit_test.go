package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestLog_AppendChains(t *testing.T) {
	l := New(nil)
	now := time.Now()

	first := l.Append(KindInvalidSample, "", "range negative", now)
	second := l.Append(KindDecisionTransition, "track-1", "no_action -> emergency_stop", now.Add(time.Second))

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("sequence numbers = %d, %d", first.Seq, second.Seq)
	}
	if first.PrevHash != "" {
		t.Errorf("first entry prev_hash = %q, want empty", first.PrevHash)
	}
	if second.PrevHash != first.Hash {
		t.Error("second entry does not chain to first")
	}
	if err := l.Verify(); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestLog_VerifyDetectsTamper(t *testing.T) {
	l := New(nil)
	now := time.Now()
	l.Append(KindStarvation, "", "no measurements", now)
	l.Append(KindDivergence, "track-2", "variance 120.00", now)

	l.entries[0].Detail = "doctored"
	if err := l.Verify(); err == nil {
		t.Error("verify accepted a tampered entry")
	}
}

func TestVerifyEntries_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	now := time.Now()
	l.Append(KindAmbiguity, "track-1", "gating tie with track-2", now)
	l.Append(KindUndelivered, "track-1", "emergency_stop: sink down", now.Add(time.Second))

	var loaded []Entry
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		loaded = append(loaded, e)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(loaded))
	}
	if err := VerifyEntries(loaded); err != nil {
		t.Errorf("reloaded chain failed verification: %v", err)
	}

	loaded[1].TrackID = "track-9"
	if err := VerifyEntries(loaded); err == nil {
		t.Error("verification accepted a modified reloaded entry")
	}
}
