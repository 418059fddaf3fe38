package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

const dayLayout = "2006-01-02"

// Range is an inclusive reporting window.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window. A zero bound is open.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// OrderRecord is an order joined with its items.
type OrderRecord struct {
	ID            uuid.UUID    `json:"id"`
	CustomerName  string       `json:"customer_name"`
	CustomerEmail string       `json:"customer_email"`
	Status        string       `json:"status"`
	PaymentMethod string       `json:"payment_method"`
	TotalCents    int64        `json:"total_cents"`
	CreatedAt     time.Time    `json:"created_at"`
	Items         []ItemRecord `json:"items"`
}

// ItemCount sums item quantities.
func (o OrderRecord) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// ItemRecord is one order line.
type ItemRecord struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Category       string    `json:"category"`
	FarmerID       uuid.UUID `json:"farmer_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// LineCents is quantity times unit price.
func (i ItemRecord) LineCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// ProductRecord is a catalog row included in the report.
type ProductRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	FarmerID   uuid.UUID `json:"farmer_id"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
}

// FarmerRecord is a farmer included in the report.
type FarmerRecord struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Farm string    `json:"farm"`
}

// ProductSales is a product's performance in the window.
type ProductSales struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	PriceCents   int64     `json:"price_cents"`
	Stock        int       `json:"stock"`
	TotalSold    int       `json:"total_sold"`
	RevenueCents int64     `json:"revenue_cents"`
}

// FarmerSales is a farmer's performance in the window.
type FarmerSales struct {
	FarmerID     uuid.UUID `json:"farmer_id"`
	Name         string    `json:"name"`
	Farm         string    `json:"farm"`
	Orders       int       `json:"orders"`
	TotalSold    int       `json:"total_sold"`
	RevenueCents int64     `json:"revenue_cents"`
}

// DailyPoint is one day of the sales trend.
type DailyPoint struct {
	Date         string `json:"date"`
	Orders       int    `json:"orders"`
	RevenueCents int64  `json:"revenue_cents"`
}

// Report is the aggregated view of a reporting window.
type Report struct {
	Entity            string           `json:"entity"`
	Range             Range            `json:"range"`
	TotalOrders       int              `json:"total_orders"`
	TotalRevenueCents int64            `json:"total_revenue_cents"`
	UniqueCustomers   int              `json:"unique_customers"`
	AverageOrderCents int64            `json:"average_order_cents"`
	OrdersByStatus    map[string]int   `json:"orders_by_status"`
	RevenueByCategory map[string]int64 `json:"revenue_by_category"`
	TopProduct        *ProductSales    `json:"top_product,omitempty"`
	TopFarmer         *FarmerSales     `json:"top_farmer,omitempty"`
	Daily             []DailyPoint     `json:"daily"`
	Orders            []OrderRecord    `json:"orders"`
	Products          []ProductSales   `json:"products"`
	Farmers           []FarmerSales    `json:"farmers"`
}

// Aggregate folds the orders inside r into a Report. Products and farmers
// seed the per-entity tables so entries with no sales still appear. Lines
// for unknown products or farmers get their own rows from the item snapshot.
func Aggregate(r Range, orders []OrderRecord, products []ProductRecord, farmers []FarmerRecord) Report {
	report := Report{
		Range:             r,
		OrdersByStatus:    map[string]int{},
		RevenueByCategory: map[string]int64{},
		Orders:            []OrderRecord{},
	}

	productIdx := make(map[uuid.UUID]int, len(products))
	for _, p := range products {
		productIdx[p.ID] = len(report.Products)
		report.Products = append(report.Products, ProductSales{
			ProductID:  p.ID,
			Name:       p.Name,
			Category:   p.Category,
			PriceCents: p.PriceCents,
			Stock:      p.Stock,
		})
	}
	farmerIdx := make(map[uuid.UUID]int, len(farmers))
	for _, f := range farmers {
		farmerIdx[f.ID] = len(report.Farmers)
		report.Farmers = append(report.Farmers, FarmerSales{FarmerID: f.ID, Name: f.Name, Farm: f.Farm})
	}

	customers := map[string]struct{}{}
	daily := map[string]*DailyPoint{}

	for _, order := range orders {
		if !r.Contains(order.CreatedAt) {
			continue
		}
		report.Orders = append(report.Orders, order)
		report.TotalOrders++
		report.TotalRevenueCents += order.TotalCents
		if email := strings.ToLower(strings.TrimSpace(order.CustomerEmail)); email != "" {
			customers[email] = struct{}{}
		}
		report.OrdersByStatus[strings.ToLower(order.Status)]++

		day := order.CreatedAt.UTC().Format(dayLayout)
		point, ok := daily[day]
		if !ok {
			point = &DailyPoint{Date: day}
			daily[day] = point
		}
		point.Orders++
		point.RevenueCents += order.TotalCents

		seenFarmers := map[uuid.UUID]struct{}{}
		for _, item := range order.Items {
			line := item.LineCents()
			report.RevenueByCategory[item.Category] += line

			pi, ok := productIdx[item.ProductID]
			if !ok {
				pi = len(report.Products)
				productIdx[item.ProductID] = pi
				report.Products = append(report.Products, ProductSales{
					ProductID:  item.ProductID,
					Name:       item.ProductName,
					Category:   item.Category,
					PriceCents: item.UnitPriceCents,
				})
			}
			report.Products[pi].TotalSold += item.Quantity
			report.Products[pi].RevenueCents += line

			fi, ok := farmerIdx[item.FarmerID]
			if !ok {
				fi = len(report.Farmers)
				farmerIdx[item.FarmerID] = fi
				report.Farmers = append(report.Farmers, FarmerSales{FarmerID: item.FarmerID})
			}
			report.Farmers[fi].TotalSold += item.Quantity
			report.Farmers[fi].RevenueCents += line
			if _, seen := seenFarmers[item.FarmerID]; !seen {
				seenFarmers[item.FarmerID] = struct{}{}
				report.Farmers[fi].Orders++
			}
		}
	}

	report.UniqueCustomers = len(customers)
	report.AverageOrderCents = money.Average(report.TotalRevenueCents, report.TotalOrders)

	report.Daily = make([]DailyPoint, 0, len(daily))
	for _, point := range daily {
		report.Daily = append(report.Daily, *point)
	}
	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date < report.Daily[j].Date })

	for i := range report.Products {
		p := &report.Products[i]
		if p.TotalSold == 0 {
			continue
		}
		if report.TopProduct == nil || p.TotalSold > report.TopProduct.TotalSold {
			top := *p
			report.TopProduct = &top
		}
	}
	for i := range report.Farmers {
		f := &report.Farmers[i]
		if f.RevenueCents == 0 {
			continue
		}
		if report.TopFarmer == nil || f.RevenueCents > report.TopFarmer.RevenueCents {
			top := *f
			report.TopFarmer = &top
		}
	}
	if report.Products == nil {
		report.Products = []ProductSales{}
	}
	if report.Farmers == nil {
		report.Farmers = []FarmerSales{}
	}
	return report
}
