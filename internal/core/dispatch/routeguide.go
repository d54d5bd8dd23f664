package dispatch

import (
	"github.com/samirrijal/routeguide/internal/core/usecases"
)

// RouteGuideService is the fully-qualified service name.
const RouteGuideService = "routeguide.RouteGuide"

// Route guide method identifiers as they appear on the wire.
const (
	MethodGetFeature   = "/" + RouteGuideService + "/GetFeature"
	MethodListFeatures = "/" + RouteGuideService + "/ListFeatures"
	MethodRecordRoute  = "/" + RouteGuideService + "/RecordRoute"
	MethodRouteChat    = "/" + RouteGuideService + "/RouteChat"
)

// RegisterRouteGuide binds the four route guide methods to svc.
func RegisterRouteGuide(d *Dispatcher, svc *usecases.RouteGuideService) {
	RegisterUnary(d, MethodGetFeature, svc.GetFeature)
	RegisterServerStream(d, MethodListFeatures, svc.ListFeatures)
	RegisterClientStream(d, MethodRecordRoute, svc.RecordRoute)
	RegisterBidiStream(d, MethodRouteChat, svc.RouteChat)
}
