package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

const qrSize = 256

// Receipt renders an order receipt with a QR code that opens trackingURL.
func Receipt(view orders.TrackingView, trackingURL string) (*File, error) {
	if trackingURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking url required")
	}
	png, err := qrcode.Encode(trackingURL, qrcode.Medium, qrSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode tracking qr")
	}

	order := view.Order
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "FarmersBracket receipt", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Order "+order.ID.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Placed "+order.CreatedAt.UTC().Format("2006-01-02 15:04")+" UTC", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Customer: "+order.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Deliver to: "+order.ShippingAddress), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s (%d%%)  Payment: %s, %s", order.Status, view.Progress.Percent, order.PaymentMethod, order.PaymentStatus), "", 1, "L", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("tracking-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("tracking-qr", 160, 10, 40, 40, false, opts, 0, "")
	pdf.Ln(6)

	items := table{header: []string{"Product", "Farm", "Qty", "Unit price", "Line total"}}
	for _, item := range view.Items {
		items.rows = append(items.rows, []string{
			item.ProductName,
			item.FarmName,
			strconv.Itoa(item.Quantity) + " " + item.Unit,
			money.Format(item.UnitPriceCents),
			money.Format(item.LineTotalCents),
		})
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(items, pageW-left-right)
	pdf.SetFont("Arial", "B", 9)
	for i, h := range items.header {
		pdf.CellFormat(widths[i], pdfRowHeight, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range items.rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(truncate(cell, pdfMaxCellLen)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	totals := [][2]string{
		{"Subtotal", money.Format(order.SubtotalCents)},
		{"Delivery", money.Format(order.DeliveryFeeCents)},
		{"Tip", money.Format(order.TipCents)},
		{"Discount", "-" + money.Format(order.DiscountCents)},
		{"Total " + order.Currency, money.Format(order.TotalCents)},
	}
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 10)
		}
		pdf.CellFormat(150, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Scan the code or visit "+trackingURL+" to track this order.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render receipt")
	}
	return &File{
		Name:        fmt.Sprintf("order-%s-receipt-%s.pdf", order.ID.String()[:8], order.CreatedAt.UTC().Format("2006-01-02")),
		ContentType: contentTypes[FormatPDF],
		Body:        buf.Bytes(),
	}, nil
}
