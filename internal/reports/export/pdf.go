package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
)

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 6.0
	pdfMaxCellLen = 40
)

func renderPDF(r reports.Report, kind Kind, at time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("FarmersBracket %s report", kind)), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s UTC", at.UTC().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, t := range sections(r, kind) {
		if t.title == "Daily" {
			continue
		}
		writePDFTable(pdf, tr, t)
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePDFTable(pdf *gofpdf.Fpdf, tr func(string) string, t table) {
	pageW, _ := pdf.GetPageSize()
	widths := columnWidths(t, pageW-2*pdfMargin)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, t.title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(226, 239, 218)
	for i, h := range t.header {
		pdf.CellFormat(widths[i], pdfRowHeight, tr(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	if len(t.rows) == 0 {
		pdf.CellFormat(0, pdfRowHeight, "No data", "1", 1, "C", false, 0, "")
		return
	}
	for _, row := range t.rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(truncate(cell, pdfMaxCellLen)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// columnWidths splits total across columns in proportion to their widest cell.
func columnWidths(t table, total float64) []float64 {
	weights := make([]float64, len(t.header))
	sum := 0.0
	for i, h := range t.header {
		w := len(h)
		for _, row := range t.rows {
			if n := len(truncate(row[i], pdfMaxCellLen)); n > w {
				w = n
			}
		}
		weights[i] = float64(w)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] = weights[i] / sum * total
	}
	return weights
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
