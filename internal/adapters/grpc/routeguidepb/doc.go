// Package routeguidepb holds the generated protobuf messages of
// route_guide.proto.
package routeguidepb

//go:generate protoc --go_out=. --go_opt=paths=source_relative route_guide.proto
