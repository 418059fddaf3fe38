package farmers

import "testing"

func TestRating(t *testing.T) {
	cases := []struct {
		name     string
		sales    int
		revenue  float64
		products int
		want     float64
	}{
		{name: "new farmer", want: 3.0},
		{name: "partial progress", sales: 2, revenue: 100, products: 1, want: 4.0},
		{name: "sales only", sales: 10, want: 5.0},
		{name: "capped at five", sales: 50, revenue: 9000, products: 40, want: 5.0},
		{name: "rounds to one decimal", sales: 1, revenue: 10, products: 0, want: 3.2},
		{name: "negative inputs count as zero", sales: -3, revenue: -20, products: -1, want: 3.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Rating(tc.sales, tc.revenue, tc.products); got != tc.want {
				t.Fatalf("Rating(%d, %v, %d) = %v, want %v", tc.sales, tc.revenue, tc.products, got, tc.want)
			}
		})
	}
}
