package export

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
)

// WriteText prints every section for kind as a terminal table.
func WriteText(w io.Writer, r reports.Report, kind Kind) error {
	for i, t := range sections(r, kind) {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, t.title); err != nil {
			return err
		}
		tw := tablewriter.NewWriter(w)
		tw.Header(t.header)
		if err := tw.Bulk(t.rows); err != nil {
			return fmt.Errorf("%s table: %w", t.title, err)
		}
		if err := tw.Render(); err != nil {
			return fmt.Errorf("%s table: %w", t.title, err)
		}
	}
	return nil
}
