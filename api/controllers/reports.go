package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	"github.com/farmersbracket/farmersbracket-backend/internal/reports/export"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const reportDateLayout = "2006-01-02"

// Report builds a sales report for the caller. Without a format the report is
// returned as JSON; format=pdf|xlsx|csv downloads a file, type narrows it.
func Report(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports unavailable"))
			return
		}
		viewer, err := currentViewer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		fields := pkgerrors.FieldErrors{}
		from, err := parseReportDate(q.Get("from"), false)
		if err != nil {
			fields["from"] = "must be YYYY-MM-DD or RFC3339"
		}
		to, err := parseReportDate(q.Get("to"), true)
		if err != nil {
			fields["to"] = "must be YYYY-MM-DD or RFC3339"
		}
		var (
			kind   export.Kind
			format export.Format
		)
		if raw := q.Get("format"); raw != "" {
			if format, err = export.ParseFormat(raw); err != nil {
				fields["format"] = "must be one of pdf, xlsx, csv"
			}
		}
		if kind, err = export.ParseKind(q.Get("type")); err != nil {
			fields["type"] = "must be one of sales, products, farmers, full"
		}
		if len(fields) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Validation(fields))
			return
		}

		report, err := svc.Generate(r.Context(), reports.Request{
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			From:      from,
			To:        to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if format == "" {
			responses.WriteSuccess(w, report)
			return
		}
		file, err := export.Render(*report, kind, format, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeFile(w, file)
	}
}

// parseReportDate accepts a calendar date or a full timestamp. A bare "to"
// date covers the whole day.
func parseReportDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.Parse(reportDateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Second), nil
	}
	return day, nil
}
