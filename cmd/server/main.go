package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"portalmcp/server/internal/db"
	"portalmcp/server/internal/mcp"
	"portalmcp/server/internal/middleware"
	"portalmcp/server/internal/observability"
	"portalmcp/server/internal/portal"
)

func main() {
	// Initialize observability (Loki)
	observability.Init()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8089"
	}

	portalURL := os.Getenv("PORTAL_URL")
	if portalURL == "" {
		log.Fatal("PORTAL_URL is not set. Set it via environment variable or .env")
	}
	portalAPIKey := os.Getenv("PORTAL_API_KEY")
	corsOrigin := os.Getenv("CORS_ORIGIN")

	client := portal.NewClient(portalURL, portalAPIKey, portal.NewMemoryCache(portal.DefaultTTL, nil))
	log.Printf("Portal upstream: %s", portalURL)

	// Optional usage log; the server runs without a database.
	var usage *db.UsageRecorder
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		database, err := db.Open(dsn)
		if err != nil {
			log.Printf("WARNING: usage log disabled: %v", err)
		} else {
			usage = db.NewUsageRecorder(database)
			log.Printf("Usage log connected")
		}
	}

	mcpHandler := mcp.NewHandler(client, usage)

	// Create router (Go 1.22+ method-aware patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	// MCP endpoint with recovery + rate limit + transport middleware
	rateLimiter := middleware.NewRateLimiter(10)
	mux.Handle("/v1/mcp", middleware.Recovery(middleware.RequestID(rateLimiter.Middleware(middleware.Transport(mcpHandler, corsOrigin)))))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: mux,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting MCP server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %s, shutting down gracefully...", sig)

	// Give in-flight requests up to 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Printf("Server stopped")
}
