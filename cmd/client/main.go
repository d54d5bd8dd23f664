package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcadapter "github.com/samirrijal/routeguide/internal/adapters/grpc"
	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/pkg/logging"
)

var (
	berkshire = domain.Point{Latitude: 409146138, Longitude: -746188906}
	hopatcong = domain.Point{Latitude: 407838351, Longitude: -746143763}
)

func main() {
	addr := pflag.String("addr", "localhost:10000", "route guide gRPC address")
	steps := pflag.Int("route-steps", 10, "points recorded between the two route endpoints")
	notes := pflag.Int("notes", 5, "route notes to send in the chat")
	interval := pflag.Duration("note-interval", time.Second, "delay between chat notes")
	pflag.Parse()

	logging.Setup("info", "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := grpcadapter.Dial(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Close()

	fmt.Println("*** SIMPLE RPC ***")
	for _, p := range []domain.Point{berkshire, {}} {
		f, err := client.GetFeature(ctx, p)
		if err != nil {
			fail("GetFeature", err)
		}
		fmt.Printf("FEATURE = %q at %+v\n", f.Name, f.Location)
	}

	fmt.Println("\n*** SERVER STREAMING ***")
	rect := domain.Rectangle{
		Lo: domain.Point{Latitude: 400000000, Longitude: -750000000},
		Hi: domain.Point{Latitude: 420000000, Longitude: -730000000},
	}
	for f, err := range client.ListFeatures(ctx, rect) {
		if err != nil {
			fail("ListFeatures", err)
		}
		fmt.Printf("FEATURE = %q at %+v\n", f.Name, f.Location)
	}

	fmt.Println("\n*** CLIENT STREAMING ***")
	route := walk(berkshire, hopatcong, *steps)
	fmt.Printf("Traversing %d points\n", len(route))
	summary, err := client.RecordRoute(ctx, slices.Values(route))
	if err != nil {
		fail("RecordRoute", err)
	}
	fmt.Printf("SUMMARY = %+v\n", summary)

	fmt.Println("\n*** BIDIRECTIONAL STREAMING ***")
	if err := chat(ctx, client, *notes, *interval); err != nil {
		fail("RouteChat", err)
	}
}

// walk returns steps+2 evenly spaced points from a to b, both included.
func walk(a, b domain.Point, steps int) []domain.Point {
	n := max(steps, 0) + 1
	route := make([]domain.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		route = append(route, domain.Point{
			Latitude:  a.Latitude + int32(int64(b.Latitude-a.Latitude)*int64(i)/int64(n)),
			Longitude: a.Longitude + int32(int64(b.Longitude-a.Longitude)*int64(i)/int64(n)),
		})
	}
	return route
}

// chat sends count notes while printing whatever other participants say,
// then half-closes and waits for the server to end the call.
func chat(ctx context.Context, client *grpcadapter.Client, count int, interval time.Duration) error {
	stream, err := client.RouteChat(ctx)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		for {
			note, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				done <- nil
				return
			}
			if err != nil {
				done <- err
				return
			}
			fmt.Printf("NOTE = %q at %+v\n", note.Message, note.Location)
		}
	}()

	start := time.Now()
	for i := range count {
		if i > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		elapsed := time.Since(start).Truncate(time.Millisecond)
		note := domain.RouteNote{
			Location: domain.Point{Latitude: berkshire.Latitude + int32(elapsed/time.Second), Longitude: berkshire.Longitude},
			Message:  fmt.Sprintf("at %s", elapsed),
		}
		if err := stream.Send(note); err != nil {
			return err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	return <-done
}

func fail(call string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", call, err)
	os.Exit(1)
}
