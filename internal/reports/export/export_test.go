package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

var exportedAt = time.Date(2026, 6, 30, 15, 0, 0, 0, time.UTC)

func sampleReport() reports.Report {
	farmer := uuid.New()
	product := uuid.New()
	records := []reports.OrderRecord{{
		ID:            uuid.New(),
		CustomerName:  "Zoë Naidoo",
		CustomerEmail: "zoe@example.com",
		Status:        "pending",
		PaymentMethod: "cash",
		TotalCents:    6100,
		CreatedAt:     exportedAt.Add(-time.Hour),
		Items: []reports.ItemRecord{
			{ProductID: product, ProductName: "Butternut", Category: "vegetables", FarmerID: farmer, Quantity: 2, UnitPriceCents: 1800},
		},
	}}
	farmers := []reports.FarmerRecord{{ID: farmer, Name: "Thandi", Farm: "Hillside"}}
	report := reports.Aggregate(reports.Range{From: exportedAt.AddDate(0, 0, -30), To: exportedAt}, records, nil, farmers)
	report.Entity = reports.EntityMarketplace
	return report
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "farmer-sales-report-2026-06-30.csv", FileName("farmer", KindSales, FormatCSV, exportedAt))
}

func TestParseFormatAndKind(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindFull, k)

	_, err = ParseKind("weekly")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestRenderCSVOrders(t *testing.T) {
	file, err := Render(sampleReport(), KindSales, FormatCSV, exportedAt)
	require.NoError(t, err)
	assert.Equal(t, "marketplace-sales-report-2026-06-30.csv", file.Name)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Order ID", records[0][0])
	assert.Equal(t, "Zoë Naidoo", records[1][2])
	assert.Equal(t, "2", records[1][6])
	assert.Equal(t, "61.00", records[1][7])
}

func TestRenderCSVFarmers(t *testing.T) {
	file, err := Render(sampleReport(), KindFarmers, FormatCSV, exportedAt)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Thandi", "Hillside", "1", "2", "36.00"}, records[1])
}

func TestRenderXLSXSheets(t *testing.T) {
	file, err := Render(sampleReport(), KindFull, FormatXLSX, exportedAt)
	require.NoError(t, err)
	assert.Equal(t, "marketplace-full-report-2026-06-30.xlsx", file.Name)

	book, err := excelize.OpenReader(bytes.NewReader(file.Body))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Summary", "Orders", "Products", "Farmers", "Daily"}, book.GetSheetList())

	value, err := book.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
	value, err = book.GetCellValue("Daily", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2026-06-30", value)
}

func TestRenderPDF(t *testing.T) {
	file, err := Render(sampleReport(), KindFull, FormatPDF, exportedAt)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestReceipt(t *testing.T) {
	view := orders.TrackingView{
		Order: orders.OrderDTO{
			ID:            uuid.New(),
			CustomerName:  "Zoë Naidoo",
			SubtotalCents: 3600,
			TotalCents:    6100,
			Currency:      "ZAR",
			CreatedAt:     exportedAt,
		},
		Items: []orders.OrderItemDTO{{ProductName: "Butternut", FarmName: "Hillside", Unit: "kg", Quantity: 2, UnitPriceCents: 1800, LineTotalCents: 3600}},
	}
	file, err := Receipt(view, "https://farmersbracket.test/track-order?id="+view.Order.ID.String())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
	assert.Contains(t, file.Name, "-receipt-2026-06-30.pdf")

	_, err = Receipt(view, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(), KindFull))

	out := buf.String()
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Farmers")
	assert.Contains(t, out, "zoe@example.com")
	assert.Contains(t, out, "Hillside")
}
