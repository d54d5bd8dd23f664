package grpcadapter_test

import (
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpcadapter "github.com/samirrijal/routeguide/internal/adapters/grpc"
	"github.com/samirrijal/routeguide/internal/core/dispatch"
	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/core/usecases"
)

func pt(lat, lon int32) domain.Point {
	return domain.Point{Latitude: lat, Longitude: lon}
}

type testEnv struct {
	svc    *usecases.RouteGuideService
	client *grpcadapter.Client
	dial   func() *grpcadapter.Client
}

func startServer(t *testing.T) *testEnv {
	t.Helper()

	svc := usecases.NewRouteGuideService(
		usecases.NewGeoIndex([]domain.Feature{
			{Name: "Berkshire Valley Management Area Trail, Jefferson, NJ, USA", Location: pt(409146138, -746188906)},
			{Name: "", Location: pt(404306372, -741079661)},
			{Name: "Patriots Path, Mendham, NJ 07945, USA", Location: pt(407838351, -746143763)},
		}),
		usecases.NewChatRoom(16),
	)
	d := dispatch.New()
	dispatch.RegisterRouteGuide(d, svc)

	lis := bufconn.Listen(1 << 20)
	srv := grpcadapter.NewServer(d)
	go func() { _ = srv.Serve(lis) }()

	dial := func() *grpcadapter.Client {
		c, err := grpcadapter.Dial("passthrough:///bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return &testEnv{svc: svc, client: dial(), dial: dial}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServer_GetFeature(t *testing.T) {
	env := startServer(t)

	f, err := env.client.GetFeature(testCtx(t), pt(409146138, -746188906))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name != "Berkshire Valley Management Area Trail, Jefferson, NJ, USA" {
		t.Errorf("unexpected name %q", f.Name)
	}
}

func TestServer_GetFeatureMiss(t *testing.T) {
	env := startServer(t)

	p := pt(0, 0)
	f, err := env.client.GetFeature(testCtx(t), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Named() || f.Location != p {
		t.Errorf("expected unnamed feature at %+v, got %+v", p, f)
	}
}

func TestServer_ListFeatures(t *testing.T) {
	env := startServer(t)
	r := domain.Rectangle{Lo: pt(400000000, -750000000), Hi: pt(420000000, -730000000)}

	var names []string
	for f, err := range env.client.ListFeatures(testCtx(t), r) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names = append(names, f.Name)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 features, got %v", names)
	}
	if names[0] != "Berkshire Valley Management Area Trail, Jefferson, NJ, USA" {
		t.Errorf("expected catalog order, got %v", names)
	}
}

func TestServer_RecordRoute(t *testing.T) {
	env := startServer(t)
	route := []domain.Point{pt(409146138, -746188906), pt(404306372, -741079661), pt(407838351, -746143763)}

	s, err := env.client.RecordRoute(testCtx(t), slices.Values(route))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.PointCount != 3 || s.FeatureCount != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Distance <= 0 {
		t.Errorf("expected positive distance, got %d", s.Distance)
	}
}

func TestServer_RecordRouteEmpty(t *testing.T) {
	env := startServer(t)

	s, err := env.client.RecordRoute(testCtx(t), slices.Values([]domain.Point(nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.PointCount != 0 || s.Distance != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
}

func TestServer_RouteChat(t *testing.T) {
	env := startServer(t)
	ctx := testCtx(t)

	alice, err := env.client.RouteChat(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bob, err := env.dial().RouteChat(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.svc.Room().Size() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 sessions, got %d", env.svc.Room().Size())
		}
		time.Sleep(time.Millisecond)
	}

	if err := bob.Send(domain.RouteNote{Location: pt(1, 1), Message: "hi alice"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := alice.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got.Message != "hi alice" || got.Location != pt(1, 1) {
		t.Errorf("unexpected note %+v", got)
	}

	if err := bob.CloseSend(); err != nil {
		t.Fatalf("close send: %v", err)
	}
	if _, err := bob.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after half-close, got %v", err)
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	env := startServer(t)

	var out domain.Feature
	in := pt(1, 1)
	err := env.client.Conn().Invoke(testCtx(t), "/routeguide.RouteGuide/Teleport", &in, &out)
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected Unimplemented, got %v", err)
	}
}

func TestServer_UnknownMethodLeavesOpenChatRunning(t *testing.T) {
	env := startServer(t)
	ctx := testCtx(t)

	alice, err := env.client.RouteChat(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bob, err := env.client.RouteChat(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.svc.Room().Size() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 sessions, got %d", env.svc.Room().Size())
		}
		time.Sleep(time.Millisecond)
	}

	var out domain.Feature
	in := pt(1, 1)
	err = env.client.Conn().Invoke(ctx, "/routeguide.RouteGuide/Teleport", &in, &out)
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected Unimplemented, got %v", err)
	}
	if env.svc.Room().Size() != 2 {
		t.Fatalf("expected chat sessions to survive, got %d", env.svc.Room().Size())
	}

	if err := bob.Send(domain.RouteNote{Location: pt(2, 2), Message: "still here"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := alice.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got.Message != "still here" {
		t.Errorf("expected 'still here', got %q", got.Message)
	}

	// The connection still serves known methods.
	if _, err := env.client.GetFeature(ctx, pt(409146138, -746188906)); err != nil {
		t.Errorf("unexpected error after unknown method: %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	env := startServer(t)

	resp, err := healthpb.NewHealthClient(env.client.Conn()).Check(testCtx(t),
		&healthpb.HealthCheckRequest{Service: dispatch.RouteGuideService})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.GetStatus())
	}
}
