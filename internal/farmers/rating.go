package farmers

import "math"

const (
	baseRating  = 3.0
	maxRating   = 5.0
	salesTarget = 10.0
	// revenueTarget is in currency units, not cents.
	revenueTarget  = 1000.0
	productsTarget = 5.0
)

// Rating is the display score shown on farmer profiles. Each of sales,
// revenue and catalogue size contributes up to two points above a base of
// three, capped at five and rounded to one decimal.
func Rating(sales int, revenue float64, products int) float64 {
	score := baseRating + (ratio(float64(sales), salesTarget)+
		ratio(revenue, revenueTarget)+
		ratio(float64(products), productsTarget))*2
	score = math.Min(score, maxRating)
	return math.Round(score*10) / 10
}

func ratio(value, target float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	return math.Min(value/target, 1)
}
