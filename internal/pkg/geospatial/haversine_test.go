package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/pkg/geospatial"
)

func TestHaversine_SamePoint(t *testing.T) {
	if d := geospatial.Haversine(40.7, -74.0, 40.7, -74.0); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestHaversine_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude on a 6371 km sphere is ~111195 m.
	d := geospatial.Haversine(0, 0, 1, 0)
	if math.Abs(d-111195) > 1 {
		t.Errorf("expected ~111195, got %f", d)
	}
}

func TestDistanceE7_Truncates(t *testing.T) {
	p1 := domain.Point{Latitude: 0, Longitude: 0}
	p2 := domain.Point{Latitude: 10000000, Longitude: 0}

	lat1, lon1 := p1.Degrees()
	lat2, lon2 := p2.Degrees()
	exact := geospatial.Haversine(lat1, lon1, lat2, lon2)

	got := geospatial.DistanceE7(p1, p2)
	if got != int32(exact) {
		t.Errorf("expected %d, got %d", int32(exact), got)
	}
	if float64(got) > exact {
		t.Errorf("expected truncation, got %d for %f", got, exact)
	}
}

func TestDistanceE7_Symmetric(t *testing.T) {
	a := domain.Point{Latitude: 409146138, Longitude: -746188906}
	b := domain.Point{Latitude: 407838351, Longitude: -746143763}
	if geospatial.DistanceE7(a, b) != geospatial.DistanceE7(b, a) {
		t.Error("expected symmetric distance")
	}
}

func TestBoundingRectangles_ContainsCenter(t *testing.T) {
	center := domain.Point{Latitude: 409146138, Longitude: -746188906}
	rects := geospatial.BoundingRectangles(center, 500)
	if len(rects) != 1 {
		t.Fatalf("expected 1 rectangle, got %d", len(rects))
	}
	r := rects[0]
	if !r.Contains(center) {
		t.Fatalf("expected %v to contain %v", r, center)
	}
	lo, hi := r.Bounds()
	if hi.Latitude-lo.Latitude <= 0 || hi.Longitude-lo.Longitude <= 0 {
		t.Errorf("expected non-empty rectangle, got %v", r)
	}
}

func TestBoundingRectangles_ClampsAtPole(t *testing.T) {
	rects := geospatial.BoundingRectangles(domain.Point{Latitude: 899999999, Longitude: 0}, 10000)
	if len(rects) != 1 {
		t.Fatalf("expected 1 rectangle, got %d", len(rects))
	}
	lo, hi := rects[0].Bounds()
	if hi.Latitude > 900000000 {
		t.Errorf("expected latitude clamped to 90°, got %d", hi.Latitude)
	}
	if lo.Longitude != -1800000000 || hi.Longitude != 1800000000 {
		t.Errorf("expected every longitude near the pole, got %d..%d", lo.Longitude, hi.Longitude)
	}
}

func TestBoundingRectangles_SplitsAtAntimeridian(t *testing.T) {
	tests := []struct {
		name   string
		center domain.Point
		across domain.Point
	}{
		{"east edge", domain.Point{Latitude: 0, Longitude: 1799990000}, domain.Point{Latitude: 0, Longitude: -1799990000}},
		{"west edge", domain.Point{Latitude: 0, Longitude: -1799990000}, domain.Point{Latitude: 0, Longitude: 1799990000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The two points are about 222 m apart across the antimeridian.
			rects := geospatial.BoundingRectangles(tt.center, 1000)
			if len(rects) != 2 {
				t.Fatalf("expected 2 rectangles, got %d", len(rects))
			}

			var center, across int
			for _, r := range rects {
				if r.Contains(tt.center) {
					center++
				}
				if r.Contains(tt.across) {
					across++
				}
			}
			if center != 1 || across != 1 {
				t.Errorf("expected each point in exactly one rectangle, got center=%d across=%d", center, across)
			}
		})
	}
}
