package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpalmerr/coursestore"
	"github.com/jpalmerr/coursestore/courses"
	"github.com/jpalmerr/coursestore/example/mockapi"
)

func main() {
	// start the mock course API; one request in five fails
	api := mockapi.New()
	api.FailureRate = 0.2
	api.MaxLatency = 300 * time.Millisecond
	go func() {
		if err := http.ListenAndServe(":9000", api.Handler()); err != nil {
			slog.Error("mock api error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	app, err := coursestore.New(
		coursestore.WithAPIURL("http://localhost:9000"),
		coursestore.WithTimeout(2*time.Second),
		coursestore.WithPort(8080),
		coursestore.WithErrorCallback(func(batch []string) {
			fmt.Printf("  ! %s\n", strings.Join(batch, "; "))
		}),
	)
	if err != nil {
		slog.Error("failed to create coursestore", "error", err)
		os.Exit(1)
	}

	// the beginner view is recomputed from every cache snapshot
	beginners := app.Store().FilterByCategory("BEGINNER").Subscribe(func(list []courses.Course) {
		fmt.Printf("  beginner courses: %d\n", len(list))
		for _, c := range list {
			fmt.Printf("    %d. %v\n", c.SeqNo, c.Fields["description"])
		}
	})
	defer beginners.Unsubscribe()

	busy := app.Loading().Busy().Subscribe(func(b bool) {
		if b {
			fmt.Println("  ... loading")
		}
	})
	defer busy.Unsubscribe()

	fmt.Println()
	fmt.Println("  coursestore demo")
	fmt.Println()
	fmt.Println("  GET  http://localhost:8080/api/courses")
	fmt.Println("  GET  http://localhost:8080/api/courses?category=BEGINNER")
	fmt.Println("  PUT  http://localhost:8080/api/courses/{id}")
	fmt.Println("  SSE  http://localhost:8080/api/sse")
	fmt.Println("  WS   ws://localhost:8080/ws")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// rename a course once the initial load settles
	go func() {
		if _, err := app.Store().Loaded(ctx); err != nil {
			return
		}
		_, _, _ = app.Store().Save(ctx, "2", courses.Changes{"description": "RxJs In Practice (2nd edition)"})
	}()

	if err := app.Start(ctx); err != nil {
		slog.Error("coursestore error", "error", err)
		os.Exit(1)
	}
}
