package reporting

import (
	"encoding/csv"
	"io"

	"core-indexer/internal/verification"
)

var csvHeader = []string{"check", "kind", "id", "field", "expected", "actual"}

// WriteCSV writes one row per violation.
func WriteCSV(w io.Writer, violations []verification.Violation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range violations {
		if err := cw.Write([]string{v.Check, v.Kind, v.ID, v.Field, v.Expected, v.Actual}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
