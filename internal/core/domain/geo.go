package domain

// CoordFactor converts between degrees and the E7 fixed-point representation.
const CoordFactor = 1e7

// Point is a latitude/longitude pair in E7 fixed point
// (degrees multiplied by 10^7 and rounded to the nearest integer).
type Point struct {
	Latitude  int32 `json:"latitude"`
	Longitude int32 `json:"longitude"`
}

// PointFromDegrees rounds a WGS 84 coordinate to E7.
func PointFromDegrees(lat, lon float64) Point {
	return Point{
		Latitude:  int32(roundHalfAway(lat * CoordFactor)),
		Longitude: int32(roundHalfAway(lon * CoordFactor)),
	}
}

// Degrees returns the coordinate as floating-point degrees.
func (p Point) Degrees() (lat, lon float64) {
	return float64(p.Latitude) / CoordFactor, float64(p.Longitude) / CoordFactor
}

// Valid reports whether the point lies within ±90° latitude and ±180° longitude.
func (p Point) Valid() bool {
	return p.Latitude >= -900000000 && p.Latitude <= 900000000 &&
		p.Longitude >= -1800000000 && p.Longitude <= 1800000000
}

// Rectangle is a latitude/longitude rectangle given by two diagonally
// opposite corners. Lo and Hi are not required to be ordered.
type Rectangle struct {
	Lo Point `json:"lo"`
	Hi Point `json:"hi"`
}

// Bounds returns the axis-normalised south-west and north-east corners.
func (r Rectangle) Bounds() (lo, hi Point) {
	lo = Point{
		Latitude:  min32(r.Lo.Latitude, r.Hi.Latitude),
		Longitude: min32(r.Lo.Longitude, r.Hi.Longitude),
	}
	hi = Point{
		Latitude:  max32(r.Lo.Latitude, r.Hi.Latitude),
		Longitude: max32(r.Lo.Longitude, r.Hi.Longitude),
	}
	return lo, hi
}

// Contains reports whether p lies inside r. All edges are inclusive.
func (r Rectangle) Contains(p Point) bool {
	lo, hi := r.Bounds()
	return p.Latitude >= lo.Latitude && p.Latitude <= hi.Latitude &&
		p.Longitude >= lo.Longitude && p.Longitude <= hi.Longitude
}

// Feature names something at a given point. An empty name means there is
// no known feature at Location.
type Feature struct {
	Name     string `json:"name"`
	Location Point  `json:"location"`
}

// Named reports whether the feature carries a name.
func (f Feature) Named() bool {
	return f.Name != ""
}

// RouteNote is a message sent while at a given point.
type RouteNote struct {
	Location Point  `json:"location"`
	Message  string `json:"message"`
}

// RouteSummary is returned once a route recording completes.
type RouteSummary struct {
	PointCount   int32 `json:"point_count"`
	FeatureCount int32 `json:"feature_count"`
	Distance     int32 `json:"distance"`     // meters
	ElapsedTime  int32 `json:"elapsed_time"` // seconds
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return float64(int64(v - 0.5))
	}
	return float64(int64(v + 0.5))
}
