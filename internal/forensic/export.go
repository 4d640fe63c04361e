package forensic

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"log_id",
	"timestamp",
	"operator_id",
	"operator_name",
	"match_found",
	"matched_subject_id",
	"confidence_score",
	"standard",
}

// ExportCSV writes the entries as a flat CSV suitable for the audit and
// reporting layer: id, timestamp, operator, result, confidence, standard.
func ExportCSV(w io.Writer, entries []*RecognitionLogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.LogID,
			entry.Timestamp.Format(time.RFC3339),
			entry.Operator.UserID,
			entry.Operator.UserName,
			"",
			"",
			"",
			entry.StandardID,
		}
		if entry.Result != nil {
			record[4] = strconv.FormatBool(entry.Result.MatchFound)
			record[5] = entry.Result.MatchedSubjectID
			record[6] = strconv.FormatFloat(entry.Result.ConfidenceScore, 'f', 4, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record %s: %w", entry.LogID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
