package audit

import (
	"bytes"
	"encoding/csv"
	"time"
)

var csvHeader = []string{"timestamp", "actor_id", "action", "target_type", "target_id", "details"}

// WriteCSV encodes records as CSV with a header row.
func WriteCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		line := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.ActorID,
			rec.Action,
			rec.TargetType,
			rec.TargetID,
			string(rec.Details),
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
