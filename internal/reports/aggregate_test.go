package reports

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	apples  = uuid.New()
	carrots = uuid.New()
	honey   = uuid.New()
	farmerA = uuid.New()
	farmerB = uuid.New()
)

func day(d, hour int) time.Time {
	return time.Date(2026, 5, d, hour, 0, 0, 0, time.UTC)
}

func sampleOrders() []OrderRecord {
	return []OrderRecord{
		{
			ID: uuid.New(), CustomerEmail: "ann@example.com", Status: "delivered", TotalCents: 7000, CreatedAt: day(3, 9),
			Items: []ItemRecord{
				{ProductID: apples, ProductName: "Apples", Category: "fruit", FarmerID: farmerA, Quantity: 2, UnitPriceCents: 1500},
				{ProductID: carrots, ProductName: "Carrots", Category: "vegetables", FarmerID: farmerB, Quantity: 1, UnitPriceCents: 2000},
			},
		},
		{
			ID: uuid.New(), CustomerEmail: "ANN@example.com ", Status: "Pending", TotalCents: 5000, CreatedAt: day(1, 23),
			Items: []ItemRecord{
				{ProductID: apples, ProductName: "Apples", Category: "fruit", FarmerID: farmerA, Quantity: 2, UnitPriceCents: 1500},
			},
		},
		{
			ID: uuid.New(), CustomerEmail: "bob@example.com", Status: "pending", TotalCents: 9000, CreatedAt: day(3, 18),
			Items: []ItemRecord{
				{ProductID: carrots, ProductName: "Carrots", Category: "vegetables", FarmerID: farmerB, Quantity: 2, UnitPriceCents: 2500},
			},
		},
		{
			ID: uuid.New(), CustomerEmail: "late@example.com", Status: "pending", TotalCents: 100000, CreatedAt: day(20, 0),
			Items: []ItemRecord{
				{ProductID: honey, ProductName: "Honey", Category: "pantry", FarmerID: farmerA, Quantity: 50, UnitPriceCents: 2000},
			},
		},
	}
}

func TestAggregateTotals(t *testing.T) {
	products := []ProductRecord{
		{ID: apples, Name: "Apples", Category: "fruit", FarmerID: farmerA, PriceCents: 1500, Stock: 10},
		{ID: carrots, Name: "Carrots", Category: "vegetables", FarmerID: farmerB, PriceCents: 2000, Stock: 4},
		{ID: honey, Name: "Honey", Category: "pantry", FarmerID: farmerA, PriceCents: 2000},
	}
	farmers := []FarmerRecord{{ID: farmerA, Name: "Ayanda"}, {ID: farmerB, Name: "Bongani"}}

	report := Aggregate(Range{From: day(1, 0), To: day(10, 0)}, sampleOrders(), products, farmers)

	assert.Equal(t, 3, report.TotalOrders)
	assert.Equal(t, int64(21000), report.TotalRevenueCents)
	assert.Equal(t, 2, report.UniqueCustomers)
	assert.Equal(t, int64(7000), report.AverageOrderCents)
	assert.Equal(t, map[string]int{"delivered": 1, "pending": 2}, report.OrdersByStatus)
	assert.Equal(t, map[string]int64{"fruit": 6000, "vegetables": 7000}, report.RevenueByCategory)

	require.NotNil(t, report.TopProduct)
	assert.Equal(t, "Apples", report.TopProduct.Name)
	assert.Equal(t, 4, report.TopProduct.TotalSold)
	require.NotNil(t, report.TopFarmer)
	assert.Equal(t, "Bongani", report.TopFarmer.Name)
	assert.Equal(t, int64(7000), report.TopFarmer.RevenueCents)
	assert.Equal(t, 2, report.TopFarmer.Orders)

	assert.Equal(t, []DailyPoint{
		{Date: "2026-05-01", Orders: 1, RevenueCents: 5000},
		{Date: "2026-05-03", Orders: 2, RevenueCents: 16000},
	}, report.Daily)

	assert.Len(t, report.Products, 3, "unsold products still listed")
	assert.Equal(t, 0, report.Products[2].TotalSold)
	assert.Len(t, report.Orders, 3)
}

func TestAggregateEmptyWindow(t *testing.T) {
	report := Aggregate(Range{From: day(25, 0), To: day(26, 0)}, sampleOrders(), nil, nil)

	assert.Zero(t, report.TotalOrders)
	assert.Zero(t, report.AverageOrderCents)
	assert.Nil(t, report.TopProduct)
	assert.Nil(t, report.TopFarmer)
	assert.Empty(t, report.Daily)
	assert.NotNil(t, report.Orders)
	assert.NotNil(t, report.Products)
}

func TestAggregateAddsUnknownProductsFromSnapshot(t *testing.T) {
	report := Aggregate(Range{}, sampleOrders()[:1], nil, nil)

	require.Len(t, report.Products, 2)
	assert.Equal(t, "Apples", report.Products[0].Name)
	assert.Equal(t, int64(1500), report.Products[0].PriceCents)
	require.Len(t, report.Farmers, 2)
	assert.Empty(t, report.Farmers[0].Name)
}

func TestAggregateDailyUsesUTCDate(t *testing.T) {
	johannesburg := time.FixedZone("SAST", 2*60*60)
	orders := []OrderRecord{
		{ID: uuid.New(), CustomerEmail: "a@example.com", Status: "pending", TotalCents: 100, CreatedAt: time.Date(2026, 5, 2, 1, 0, 0, 0, johannesburg)},
	}
	report := Aggregate(Range{}, orders, nil, nil)
	require.Len(t, report.Daily, 1)
	assert.Equal(t, "2026-05-01", report.Daily[0].Date)
}
