package geospatial

import (
	"math"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// DistanceE7 returns the haversine distance between two E7 points in whole
// meters. The fractional part is truncated.
func DistanceE7(p1, p2 domain.Point) int32 {
	lat1, lon1 := p1.Degrees()
	lat2, lon2 := p2.Degrees()
	return int32(Haversine(lat1, lon1, lat2, lon2))
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// BoundingRectangles is BoundingBox expressed as E7 rectangles. Latitude is
// clamped to the poles. A box that crosses the antimeridian is split into
// one rectangle on each side, and a box wider than the globe covers every
// longitude. The rectangles never overlap.
func BoundingRectangles(center domain.Point, radiusMeters float64) []domain.Rectangle {
	lat, lon := center.Degrees()
	minLat, minLon, maxLat, maxLon := BoundingBox(lat, lon, radiusMeters)
	minLat, maxLat = clamp(minLat, -90, 90), clamp(maxLat, -90, 90)

	span := func(lo, hi float64) domain.Rectangle {
		return domain.Rectangle{
			Lo: domain.PointFromDegrees(minLat, lo),
			Hi: domain.PointFromDegrees(maxLat, hi),
		}
	}

	switch {
	case math.IsNaN(minLon) || math.IsNaN(maxLon) || maxLon-minLon >= 360:
		return []domain.Rectangle{span(-180, 180)}
	case minLon < -180:
		return []domain.Rectangle{span(-180, maxLon), span(minLon+360, 180)}
	case maxLon > 180:
		return []domain.Rectangle{span(minLon, 180), span(-180, maxLon-360)}
	default:
		return []domain.Rectangle{span(minLon, maxLon)}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
