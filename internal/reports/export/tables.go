package export

import (
	"sort"
	"strconv"

	"github.com/farmersbracket/farmersbracket-backend/internal/reports"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

// table is a header plus string rows shared by every format.
type table struct {
	title  string
	header []string
	rows   [][]string
}

func summaryTable(r reports.Report) table {
	t := table{
		title:  "Summary",
		header: []string{"Metric", "Value"},
		rows: [][]string{
			{"From", r.Range.From.UTC().Format("2006-01-02")},
			{"To", r.Range.To.UTC().Format("2006-01-02")},
			{"Total orders", strconv.Itoa(r.TotalOrders)},
			{"Total revenue", money.Format(r.TotalRevenueCents)},
			{"Unique customers", strconv.Itoa(r.UniqueCustomers)},
			{"Average order value", money.Format(r.AverageOrderCents)},
		},
	}
	if r.TopProduct != nil {
		t.rows = append(t.rows, []string{"Top product", r.TopProduct.Name + " (" + strconv.Itoa(r.TopProduct.TotalSold) + " sold)"})
	}
	if r.TopFarmer != nil {
		t.rows = append(t.rows, []string{"Top farmer", r.TopFarmer.Name + " (" + money.Format(r.TopFarmer.RevenueCents) + ")"})
	}
	for _, status := range sortedKeys(r.OrdersByStatus) {
		t.rows = append(t.rows, []string{"Orders " + status, strconv.Itoa(r.OrdersByStatus[status])})
	}
	for _, category := range sortedKeys(r.RevenueByCategory) {
		t.rows = append(t.rows, []string{"Revenue " + category, money.Format(r.RevenueByCategory[category])})
	}
	return t
}

func ordersTable(r reports.Report) table {
	t := table{
		title:  "Orders",
		header: []string{"Order ID", "Date", "Customer", "Email", "Status", "Payment", "Items", "Total"},
	}
	for _, o := range r.Orders {
		t.rows = append(t.rows, []string{
			o.ID.String(),
			o.CreatedAt.UTC().Format("2006-01-02 15:04"),
			o.CustomerName,
			o.CustomerEmail,
			o.Status,
			o.PaymentMethod,
			strconv.Itoa(o.ItemCount()),
			money.Format(o.TotalCents),
		})
	}
	return t
}

func productsTable(r reports.Report) table {
	t := table{
		title:  "Products",
		header: []string{"Product", "Category", "Price", "Stock", "Sold", "Revenue"},
	}
	for _, p := range r.Products {
		t.rows = append(t.rows, []string{
			p.Name,
			p.Category,
			money.Format(p.PriceCents),
			strconv.Itoa(p.Stock),
			strconv.Itoa(p.TotalSold),
			money.Format(p.RevenueCents),
		})
	}
	return t
}

func farmersTable(r reports.Report) table {
	t := table{
		title:  "Farmers",
		header: []string{"Farmer", "Farm", "Orders", "Units sold", "Revenue"},
	}
	for _, f := range r.Farmers {
		t.rows = append(t.rows, []string{
			f.Name,
			f.Farm,
			strconv.Itoa(f.Orders),
			strconv.Itoa(f.TotalSold),
			money.Format(f.RevenueCents),
		})
	}
	return t
}

func dailyTable(r reports.Report) table {
	t := table{
		title:  "Daily",
		header: []string{"Date", "Orders", "Revenue"},
	}
	for _, d := range r.Daily {
		t.rows = append(t.rows, []string{d.Date, strconv.Itoa(d.Orders), money.Format(d.RevenueCents)})
	}
	return t
}

// sections lists the tables for kind in render order. Summary always leads.
func sections(r reports.Report, kind Kind) []table {
	out := []table{summaryTable(r)}
	if kind.includes(KindSales) {
		out = append(out, ordersTable(r))
	}
	if kind.includes(KindProducts) {
		out = append(out, productsTable(r))
	}
	if kind.includes(KindFarmers) {
		out = append(out, farmersTable(r))
	}
	if kind.includes(KindSales) {
		out = append(out, dailyTable(r))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
