package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// featureCollection converts features to GeoJSON points. Coordinates are in
// degrees, longitude first; the exact E7 values are kept as properties.
func featureCollection(features []domain.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		lat, lon := f.Location.Degrees()
		gf := geojson.NewFeature(orb.Point{lon, lat})
		gf.Properties["name"] = f.Name
		gf.Properties["latitude"] = f.Location.Latitude
		gf.Properties["longitude"] = f.Location.Longitude
		fc.Append(gf)
	}
	return fc
}

func writeGeoJSON(c *fiber.Ctx, features []domain.Feature) error {
	b, err := featureCollection(features).MarshalJSON()
	if err != nil {
		return errInternal(c, err.Error())
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(b)
}
