// Package main provides the FDP packet inspection server
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fdp-protocol/fdp-node/pkg/inspect"
	"github.com/fdp-protocol/fdp-node/pkg/protocol"
	"github.com/fdp-protocol/fdp-node/pkg/session"
)

func main() {
	// Parse command line flags
	apiPort := flag.Int("port", 8080, "HTTP API port")
	dataDir := flag.String("data", "./data", "Data directory for the session database")
	enableCORS := flag.Bool("cors", true, "Enable CORS headers")
	rateLimit := flag.Int("rate-limit", 100, "Rate limit (requests per minute)")
	maxPayloadMB := flag.Int("max-payload", 10, "Maximum packet payload size in MB")
	sessionTTL := flag.Duration("session-ttl", 24*time.Hour, "How long idle session state is kept")
	clockSkew := flag.Duration("clock-skew", 5*time.Minute, "Accepted packet timestamp skew (0 disables the check)")

	flag.Parse()

	fmt.Println("FDP Packet Inspector")
	fmt.Println("====================")
	fmt.Printf("Protocol version: %d\n", protocol.ProtocolVersion)
	fmt.Println()

	// Open the session tracker database
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	trackerPath := filepath.Join(*dataDir, "sessions.db")
	tracker, err := session.Open(trackerPath, &session.Config{
		TTL:          *sessionTTL,
		MaxClockSkew: *clockSkew,
	})
	if err != nil {
		log.Fatalf("Failed to open session tracker: %v", err)
	}
	log.Printf("Session tracker initialized at %s (TTL: %v)", trackerPath, *sessionTTL)

	// Create HTTP API server
	apiConfig := &inspect.Config{
		Port:           *apiPort,
		EnableCORS:     *enableCORS,
		RateLimit:      *rateLimit,
		MaxPayloadSize: uint32(*maxPayloadMB) << 20,
	}

	apiServer := inspect.NewServer(tracker, apiConfig)

	apiCtx, apiCancel := context.WithCancel(context.Background())
	defer apiCancel()

	go func() {
		if err := apiServer.Start(apiCtx); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	fmt.Println("Server is ready!")
	fmt.Println()
	fmt.Println("API Endpoints:")
	fmt.Printf("  POST http://localhost:%d/api/v1/packet/decode\n", *apiPort)
	fmt.Printf("  POST http://localhost:%d/api/v1/packet/encode\n", *apiPort)
	fmt.Printf("  GET  http://localhost:%d/api/v1/sessions\n", *apiPort)
	fmt.Printf("  GET  http://localhost:%d/api/v1/sessions/:id\n", *apiPort)
	fmt.Printf("  GET  http://localhost:%d/health\n", *apiPort)
	fmt.Println()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh

	fmt.Println("\nShutting down...")

	apiCancel()

	if err := tracker.Close(); err != nil {
		fmt.Printf("Error closing session tracker: %v\n", err)
	}
}
