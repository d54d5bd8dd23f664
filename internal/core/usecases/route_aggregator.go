package usecases

import (
	"errors"
	"math"
	"time"

	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/pkg/geospatial"
)

// ErrRouteFinalized is returned when a finalized route is used again.
var ErrRouteFinalized = errors.New("route already finalized")

// RouteAggregator accumulates the points of one recorded route. It belongs to
// a single call and is not safe for concurrent use.
type RouteAggregator struct {
	index *GeoIndex
	now   func() time.Time

	start     time.Time
	prev      domain.Point
	hasPrev   bool
	finalized bool
	distance  int64
	summary   domain.RouteSummary
}

// NewRouteAggregator starts a route at the current time. A nil clock means
// time.Now.
func NewRouteAggregator(index *GeoIndex, clock func() time.Time) *RouteAggregator {
	if clock == nil {
		clock = time.Now
	}
	return &RouteAggregator{index: index, now: clock, start: clock()}
}

// Add records the next point of the route. Each leg is truncated to whole
// meters before it is added to the total.
func (a *RouteAggregator) Add(p domain.Point) error {
	if a.finalized {
		return ErrRouteFinalized
	}

	a.summary.PointCount++
	if a.index != nil && a.index.Lookup(p).Named() {
		a.summary.FeatureCount++
	}
	if a.hasPrev {
		a.distance += int64(geospatial.DistanceE7(a.prev, p))
	}
	a.prev = p
	a.hasPrev = true
	return nil
}

// Finalize closes the route and returns its summary. It succeeds once.
func (a *RouteAggregator) Finalize() (domain.RouteSummary, error) {
	if a.finalized {
		return domain.RouteSummary{}, ErrRouteFinalized
	}
	a.finalized = true

	elapsed := a.now().Sub(a.start)
	if elapsed < 0 {
		elapsed = 0
	}
	a.summary.ElapsedTime = int32(elapsed / time.Second)
	// Distance saturates instead of wrapping on very long routes.
	a.summary.Distance = int32(min(a.distance, math.MaxInt32))
	return a.summary, nil
}
