package grpcadapter

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/samirrijal/routeguide/internal/adapters/grpc/routeguidepb"
	"github.com/samirrijal/routeguide/internal/core/domain"
)

// Codec carries the route guide domain types over the generated
// route_guide.proto messages, so the dispatcher and handlers never see
// protobuf types. Other proto.Message values (the health service) are
// marshalled as they are.
type Codec struct{}

// Name is "proto" so the content-subtype stays application/grpc+proto.
func (Codec) Name() string { return "proto" }

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	var msg proto.Message
	switch m := v.(type) {
	case *domain.Point:
		msg = toPointPB(*m)
	case domain.Point:
		msg = toPointPB(m)
	case *domain.Rectangle:
		msg = toRectanglePB(*m)
	case domain.Rectangle:
		msg = toRectanglePB(m)
	case *domain.Feature:
		msg = toFeaturePB(*m)
	case domain.Feature:
		msg = toFeaturePB(m)
	case *domain.RouteNote:
		msg = toRouteNotePB(*m)
	case domain.RouteNote:
		msg = toRouteNotePB(m)
	case *domain.RouteSummary:
		msg = toRouteSummaryPB(*m)
	case domain.RouteSummary:
		msg = toRouteSummaryPB(m)
	case proto.Message:
		msg = m
	default:
		return nil, fmt.Errorf("codec: cannot marshal %T", v)
	}
	return proto.Marshal(msg)
}

// Unmarshal implements encoding.Codec. The target is reset first.
func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *domain.Point:
		var pb routeguidepb.Point
		if err := proto.Unmarshal(data, &pb); err != nil {
			return err
		}
		*m = fromPointPB(&pb)
	case *domain.Rectangle:
		var pb routeguidepb.Rectangle
		if err := proto.Unmarshal(data, &pb); err != nil {
			return err
		}
		*m = domain.Rectangle{Lo: fromPointPB(pb.GetLo()), Hi: fromPointPB(pb.GetHi())}
	case *domain.Feature:
		var pb routeguidepb.Feature
		if err := proto.Unmarshal(data, &pb); err != nil {
			return err
		}
		*m = domain.Feature{Name: pb.GetName(), Location: fromPointPB(pb.GetLocation())}
	case *domain.RouteNote:
		var pb routeguidepb.RouteNote
		if err := proto.Unmarshal(data, &pb); err != nil {
			return err
		}
		*m = domain.RouteNote{Location: fromPointPB(pb.GetLocation()), Message: pb.GetMessage()}
	case *domain.RouteSummary:
		var pb routeguidepb.RouteSummary
		if err := proto.Unmarshal(data, &pb); err != nil {
			return err
		}
		*m = domain.RouteSummary{
			PointCount:   pb.GetPointCount(),
			FeatureCount: pb.GetFeatureCount(),
			Distance:     pb.GetDistance(),
			ElapsedTime:  pb.GetElapsedTime(),
		}
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("codec: cannot unmarshal into %T", v)
	}
	return nil
}

// Nested points are always set so a feature at 0,0 still carries its
// location field.

func toPointPB(p domain.Point) *routeguidepb.Point {
	return &routeguidepb.Point{Latitude: p.Latitude, Longitude: p.Longitude}
}

func toRectanglePB(r domain.Rectangle) *routeguidepb.Rectangle {
	return &routeguidepb.Rectangle{Lo: toPointPB(r.Lo), Hi: toPointPB(r.Hi)}
}

func toFeaturePB(f domain.Feature) *routeguidepb.Feature {
	return &routeguidepb.Feature{Name: f.Name, Location: toPointPB(f.Location)}
}

func toRouteNotePB(n domain.RouteNote) *routeguidepb.RouteNote {
	return &routeguidepb.RouteNote{Location: toPointPB(n.Location), Message: n.Message}
}

func toRouteSummaryPB(s domain.RouteSummary) *routeguidepb.RouteSummary {
	return &routeguidepb.RouteSummary{
		PointCount:   s.PointCount,
		FeatureCount: s.FeatureCount,
		Distance:     s.Distance,
		ElapsedTime:  s.ElapsedTime,
	}
}

// fromPointPB maps a missing point to the zero point.
func fromPointPB(p *routeguidepb.Point) domain.Point {
	return domain.Point{Latitude: p.GetLatitude(), Longitude: p.GetLongitude()}
}
