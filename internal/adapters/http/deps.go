package http

import (
	"context"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
	"github.com/samirrijal/routeguide/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Service    *usecases.RouteGuideService
	Dispatcher *dispatch.Dispatcher
	// Checks run on /v1/ready. A failing required check makes the service
	// not ready; optional ones are only reported.
	Checks []ReadinessCheck
	// Version is reported by /v1/health.
	Version string
}

// ReadinessCheck probes one backing dependency.
type ReadinessCheck struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}
