package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	capeTown := Point{Lat: -33.9249, Lng: 18.4241}
	johannesburg := Point{Lat: -26.2041, Lng: 28.0473}

	got := Haversine(capeTown, johannesburg)
	if math.Abs(got-1262) > 5 {
		t.Fatalf("expected ~1262km between Cape Town and Johannesburg, got %.1f", got)
	}
	if Haversine(capeTown, capeTown) != 0 {
		t.Fatal("expected zero distance for identical points")
	}
	if math.Abs(Haversine(capeTown, johannesburg)-Haversine(johannesburg, capeTown)) > 1e-9 {
		t.Fatal("expected symmetric distance")
	}
}

func TestWithin(t *testing.T) {
	a := Point{Lat: -33.9249, Lng: 18.4241}
	b := Point{Lat: -33.9321, Lng: 18.8602} // Stellenbosch, ~40km
	if !Within(a, b, 50) {
		t.Fatal("expected Stellenbosch within 50km of Cape Town")
	}
	if Within(a, b, 10) {
		t.Fatal("did not expect Stellenbosch within 10km of Cape Town")
	}
}

func TestValidate(t *testing.T) {
	if err := (Point{Lat: 91}).Validate(); err == nil {
		t.Fatal("expected latitude error")
	}
	if err := (Point{Lng: -181}).Validate(); err == nil {
		t.Fatal("expected longitude error")
	}
	if err := (Point{Lat: -33.9, Lng: 18.4}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRoundKm(t *testing.T) {
	if got := RoundKm(12.345); got != 12.3 {
		t.Fatalf("expected 12.3, got %v", got)
	}
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	center := Point{Lat: -33.9249, Lng: 18.4241}
	box := BoundingBox(center, 50)

	stellenbosch := Point{Lat: -33.9321, Lng: 18.8602}
	if !box.Contains(stellenbosch) {
		t.Fatalf("expected box %+v to contain Stellenbosch", box)
	}
	johannesburg := Point{Lat: -26.2041, Lng: 28.0473}
	if box.Contains(johannesburg) {
		t.Fatalf("did not expect box %+v to contain Johannesburg", box)
	}
	edge := Point{Lat: center.Lat + 0.44, Lng: center.Lng}
	if Within(center, edge, 50) && !box.Contains(edge) {
		t.Fatal("points within the radius must be inside the box")
	}
}
