package products

import (
	"sort"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// BrowseParams describes the catalog browse filters.
type BrowseParams struct {
	Category string
	Organic  *bool
	Featured *bool
	Search   string
	FarmID   *uuid.UUID
	InStock  bool

	// Near or Address anchor the distance filter and sort. Near wins when
	// both are supplied.
	Near           *geo.Point
	Address        string
	RadiusKm       float64
	SortByDistance bool

	Pagination pagination.Params
}

func (p BrowseParams) wantsDistance() bool {
	return p.RadiusKm > 0 || p.SortByDistance
}

// BrowseResult is one page of catalog results.
type BrowseResult struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Origin     *geo.Point   `json:"origin,omitempty"`
}

type rankedRow struct {
	row ProductWithFarm
	km  float64
}

// rankByDistance keeps rows whose farm lies within radiusKm of origin (any
// distance when radiusKm is zero) and orders them nearest first. Rows without
// farm coordinates are dropped.
func rankByDistance(rows []ProductWithFarm, origin geo.Point, radiusKm float64) []rankedRow {
	ranked := make([]rankedRow, 0, len(rows))
	for _, row := range rows {
		point, ok := row.FarmPoint()
		if !ok {
			continue
		}
		km := geo.Haversine(origin, point)
		if radiusKm > 0 && km > radiusKm {
			continue
		}
		ranked = append(ranked, rankedRow{row: row, km: km})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].km < ranked[j].km
	})
	return ranked
}

func rowCursor(row ProductWithFarm) pagination.Cursor {
	return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
}
