package natsadapter

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

func TestNoteRelay_HandleForeignNote(t *testing.T) {
	local := &NoteRelay{subject: "routeguide.chat.notes", origin: "local"}
	remote := &NoteRelay{subject: "routeguide.chat.notes", origin: "remote"}

	want := domain.RouteNote{Location: domain.Point{Latitude: 409146138, Longitude: -746188906}, Message: "First message"}
	msg, err := remote.encode(want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []domain.RouteNote
	local.handle(context.Background(), msg, func(_ context.Context, n domain.RouteNote) error {
		got = append(got, n)
		return nil
	})
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestNoteRelay_IgnoresOwnNotes(t *testing.T) {
	r := &NoteRelay{subject: "routeguide.chat.notes", origin: "self"}
	msg, err := r.encode(domain.RouteNote{Message: "echo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	called := false
	r.handle(context.Background(), msg, func(context.Context, domain.RouteNote) error {
		called = true
		return nil
	})
	if called {
		t.Error("expected own note to be ignored")
	}
}

func TestNoteRelay_DropsMalformed(t *testing.T) {
	r := &NoteRelay{subject: "s", origin: "self"}
	msg := nats.NewMsg("s")
	msg.Data = []byte("{not json")

	called := false
	r.handle(context.Background(), msg, func(context.Context, domain.RouteNote) error {
		called = true
		return nil
	})
	if called {
		t.Error("expected malformed note to be dropped")
	}
}
