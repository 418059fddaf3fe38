package export

import (
	"github.com/xuri/excelize/v2"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
)

const defaultSheet = "Sheet1"

func renderXLSX(r reports.Report, kind Kind) (out []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, t := range sections(r, kind) {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.title); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(t.title); err != nil {
			return nil, err
		}
		if err := writeSheet(f, t, bold); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, t table, headerStyle int) error {
	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.title, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(t.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.title, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(t.title, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
