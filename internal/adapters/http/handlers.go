package http

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/pkg/geospatial"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
	maxRoutePoints   = 10000
	maxNearbyRadius  = 50000 // meters
)

// NearbyFeature is a feature with its distance from the query point.
type NearbyFeature struct {
	domain.Feature
	Distance int32 `json:"distance"` // meters
}

// CatalogStats summarises the loaded catalog and live chat state.
type CatalogStats struct {
	Features     int      `json:"features"`
	Named        int      `json:"named"`
	ChatSessions int      `json:"chat_sessions"`
	Methods      []string `json:"methods"`
}

// LookupFeatureHandler returns the feature at an exact E7 point. A point
// with no feature yields an unnamed feature, not a 404.
func LookupFeatureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		f, err := deps.Service.GetFeature(c.UserContext(), p)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(f)
	}
}

// ListFeaturesHandler pages through the named features inside a rectangle,
// as JSON or as a GeoJSON FeatureCollection.
func ListFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lo, err := queryPoint(c, "lo_lat", "lo_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		hi, err := queryPoint(c, "hi_lat", "hi_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", defaultPageLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > maxPageLimit {
			limit = defaultPageLimit
		}

		var page []domain.Feature
		total := 0
		err = deps.Service.ListFeatures(c.UserContext(), domain.Rectangle{Lo: lo, Hi: hi}, func(f domain.Feature) error {
			if total >= offset && len(page) < limit {
				page = append(page, f)
			}
			total++
			return nil
		})
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("list features", "error", err)
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)

		if c.Query("format") == "geojson" {
			c.Set("X-Total-Count", strconv.Itoa(total))
			return writeGeoJSON(c, page)
		}
		if page == nil {
			page = []domain.Feature{}
		}
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NearbyFeaturesHandler returns named features within radius meters of a
// point, nearest first.
func NearbyFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := c.QueryFloat("radius", 1000)
		if radius <= 0 || radius > maxNearbyRadius {
			return errBadRequest(c, fmt.Sprintf("radius must be between 1 and %d meters", maxNearbyRadius))
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > maxPageLimit {
			limit = 20
		}

		var nearby []NearbyFeature
		for _, box := range geospatial.BoundingRectangles(center, radius) {
			for f := range deps.Service.Index().Query(box) {
				d := geospatial.DistanceE7(center, f.Location)
				if float64(d) <= radius {
					nearby = append(nearby, NearbyFeature{Feature: f, Distance: d})
				}
			}
		}
		slices.SortStableFunc(nearby, func(a, b NearbyFeature) int {
			return int(a.Distance) - int(b.Distance)
		})
		if len(nearby) > limit {
			nearby = nearby[:limit]
		}
		if nearby == nil {
			nearby = []NearbyFeature{}
		}
		return c.JSON(nearby)
	}
}

// RouteSummaryHandler aggregates a posted list of points. Elapsed time is
// always zero since the points arrive together.
func RouteSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var points []domain.Point
		if err := c.BodyParser(&points); err != nil {
			return errBadRequest(c, "body must be a JSON array of points")
		}
		if len(points) > maxRoutePoints {
			return errTooLarge(c, fmt.Sprintf("at most %d points per route", maxRoutePoints))
		}
		for i, p := range points {
			if !p.Valid() {
				return errBadRequest(c, fmt.Sprintf("point %d is out of range", i))
			}
		}

		return c.JSON(deps.Service.SummarizeRoute(points))
	}
}

// CatalogStatsHandler reports catalog and chat counters.
func CatalogStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all := deps.Service.Index().All()
		stats := CatalogStats{
			Features:     len(all),
			ChatSessions: deps.Service.Room().Size(),
			Methods:      []string{},
		}
		for _, f := range all {
			if f.Named() {
				stats.Named++
			}
		}
		if deps.Dispatcher != nil {
			stats.Methods = deps.Dispatcher.Methods()
		}

		c.Set("Cache-Control", "no-cache")
		return c.JSON(stats)
	}
}

// queryPoint parses a required E7 latitude/longitude pair.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (domain.Point, error) {
	lat, err := queryE7(c, latKey)
	if err != nil {
		return domain.Point{}, err
	}
	lon, err := queryE7(c, lonKey)
	if err != nil {
		return domain.Point{}, err
	}
	p := domain.Point{Latitude: lat, Longitude: lon}
	if !p.Valid() {
		return domain.Point{}, fmt.Errorf("%s/%s out of range", latKey, lonKey)
	}
	return p, nil
}

func queryE7(c *fiber.Ctx, key string) (int32, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be an E7 integer", key)
	}
	return int32(v), nil
}
