package mockapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpalmerr/coursestore/courses"
	"github.com/jpalmerr/coursestore/internal/transport"
)

func TestServer_RoundTripThroughClient(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	client, err := transport.NewClient(srv.URL, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Update(ctx, "2", courses.Changes{"description": "RxJs Deep Dive", "id": "ignored"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	env, err := client.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(env.Payload) != len(Seed) {
		t.Fatalf("len(payload) = %d, want %d", len(env.Payload), len(Seed))
	}
	got := env.Payload[1]
	if got.ID != "2" || got.Fields["description"] != "RxJs Deep Dive" {
		t.Errorf("course 2 = %+v", got)
	}
}

func TestServer_UnknownCourse(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	client, err := transport.NewClient(srv.URL, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.Update(context.Background(), "99", courses.Changes{"seqNo": 1}); err == nil {
		t.Fatal("Update() expected error for unknown course, got nil")
	}
}

func TestServer_FailureInjection(t *testing.T) {
	api := New()
	api.FailureRate = 1
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	client, err := transport.NewClient(srv.URL, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("FetchAll() expected error, got nil")
	}
}

func TestNew_CopiesSeed(t *testing.T) {
	a := New()
	a.courses[0]["description"] = "changed"

	if Seed[0]["description"] == "changed" {
		t.Error("New() shares maps with Seed")
	}
}
