package sim

import (
	"encoding/json"
	"os"
)

// FileWriter writes track, decision, and alert rows to JSONL files.
// decisionPath or alertPath may be empty to skip those logs.
type FileWriter struct {
	trackFile    *os.File
	decisionFile *os.File
	alertFile    *os.File
	trackEnc     *json.Encoder
	decisionEnc  *json.Encoder
	alertEnc     *json.Encoder
}

// NewFileWriter creates a FileWriter.
func NewFileWriter(trackPath, decisionPath, alertPath string) (*FileWriter, error) {
	tf, err := os.Create(trackPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{trackFile: tf, trackEnc: json.NewEncoder(tf)}
	if decisionPath != "" {
		df, err := os.Create(decisionPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.decisionFile = df
		fw.decisionEnc = json.NewEncoder(df)
	}
	if alertPath != "" {
		af, err := os.Create(alertPath)
		if err != nil {
			if fw.decisionFile != nil {
				fw.decisionFile.Close()
			}
			tf.Close()
			return nil, err
		}
		fw.alertFile = af
		fw.alertEnc = json.NewEncoder(af)
	}
	return fw, nil
}

// WriteTrack logs a single track row.
func (f *FileWriter) WriteTrack(row TrackRow) error {
	return f.trackEnc.Encode(row)
}

// WriteTracks logs multiple track rows.
func (f *FileWriter) WriteTracks(rows []TrackRow) error {
	for _, r := range rows {
		if err := f.WriteTrack(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteDecision logs a single decision row, if enabled.
func (f *FileWriter) WriteDecision(d DecisionRow) error {
	if f.decisionEnc == nil {
		return nil
	}
	return f.decisionEnc.Encode(d)
}

// WriteDecisions logs multiple decision rows.
func (f *FileWriter) WriteDecisions(rows []DecisionRow) error {
	for _, d := range rows {
		if err := f.WriteDecision(d); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert logs an alert row, if enabled.
func (f *FileWriter) WriteAlert(a AlertRow) error {
	if f.alertEnc == nil {
		return nil
	}
	return f.alertEnc.Encode(a)
}

// Close closes all underlying files.
func (f *FileWriter) Close() error {
	var firstErr error
	for _, file := range []*os.File{f.trackFile, f.decisionFile, f.alertFile} {
		if file == nil {
			continue
		}
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
