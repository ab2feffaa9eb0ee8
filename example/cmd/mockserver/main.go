// Standalone mock course API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver -fail 0.2
//
// Then in another terminal:
//
//	go run ./cmd/coursestore serve -c example/config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/coursestore/example/mockapi"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	failureRate := flag.Float64("fail", 0, "probability (0..1) that a request fails")
	latency := flag.Duration("latency", 200*time.Millisecond, "maximum random latency per request")
	flag.Parse()

	api := mockapi.New()
	api.FailureRate = *failureRate
	api.MaxLatency = *latency

	fmt.Printf("Mock course API starting on %s\n", *addr)
	fmt.Printf("Failure rate: %.0f%%, max latency: %s\n", *failureRate*100, *latency)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := http.ListenAndServe(*addr, api.Handler()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
