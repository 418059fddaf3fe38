package export

import (
	"bytes"
	"encoding/csv"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
)

// renderCSV writes the one flat table that best matches kind.
func renderCSV(r reports.Report, kind Kind) ([]byte, error) {
	var t table
	switch kind {
	case KindProducts:
		t = productsTable(r)
	case KindFarmers:
		t = farmersTable(r)
	default:
		t = ordersTable(r)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
