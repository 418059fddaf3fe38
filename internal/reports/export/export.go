// Package export renders reports as downloadable files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

// Format is an output file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Kind selects which tables a report file carries.
type Kind string

const (
	KindSales    Kind = "sales"
	KindProducts Kind = "products"
	KindFarmers  Kind = "farmers"
	KindFull     Kind = "full"
)

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatCSV:  "text/csv; charset=utf-8",
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// ParseFormat normalizes a format name.
func ParseFormat(value string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := contentTypes[f]; !ok {
		return "", pkgerrors.Validation(pkgerrors.FieldErrors{"format": "must be one of pdf, xlsx, csv"})
	}
	return f, nil
}

// ParseKind normalizes a report kind. Empty means full.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch k {
	case "":
		return KindFull, nil
	case KindSales, KindProducts, KindFarmers, KindFull:
		return k, nil
	}
	return "", pkgerrors.Validation(pkgerrors.FieldErrors{"type": "must be one of sales, products, farmers, full"})
}

func (k Kind) includes(section Kind) bool {
	return k == KindFull || k == section
}

// FileName builds <entity>-<kind>-report-<YYYY-MM-DD>.<ext>.
func FileName(entity string, kind Kind, format Format, at time.Time) string {
	return fmt.Sprintf("%s-%s-report-%s.%s", entity, kind, at.UTC().Format("2006-01-02"), format)
}

// Render writes report in the requested format.
func Render(report reports.Report, kind Kind, format Format, at time.Time) (*File, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case FormatPDF:
		body, err = renderPDF(report, kind, at)
	case FormatXLSX:
		body, err = renderXLSX(report, kind)
	case FormatCSV:
		body, err = renderCSV(report, kind)
	default:
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"format": "unsupported format"})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render report")
	}
	entity := report.Entity
	if entity == "" {
		entity = reports.EntityMarketplace
	}
	return &File{
		Name:        FileName(entity, kind, format, at),
		ContentType: contentTypes[format],
		Body:        body,
	}, nil
}
