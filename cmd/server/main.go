/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the appointment allocation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML configuration (flags override)
  3. Build the center directory
  4. Initialize the SQLite store (ledger + request tracker)
  5. Wire metrics and the allocation engine
  6. Configure HTTP router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML configuration path (default: config.toml, missing is fine)
  -port    HTTP server port (overrides config when set)
  -db      SQLite database path (default: allocation.db)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/allocation.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/allocation-engine/api"
	"github.com/warp/allocation-engine/centers"
	"github.com/warp/allocation-engine/config"
	"github.com/warp/allocation-engine/engine"
	"github.com/warp/allocation-engine/metrics"
	"github.com/warp/allocation-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.toml", "TOML configuration path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "allocation.db", "SQLite database path")
	flag.Parse()

	// Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Center directory
	centerList, err := centers.FromDefinitions(cfg.Centers)
	if err != nil {
		log.Fatalf("Invalid center configuration: %v", err)
	}
	directory := centers.NewDirectory(centerList)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Metrics
	rec := metrics.New()

	// Allocation engine
	eng := engine.New(store, store, directory, engine.Options{
		LookaheadDays:     cfg.Engine.LookaheadDays,
		WalkinBuffer:      cfg.Engine.WalkinBuffer,
		OverloadThreshold: cfg.Engine.OverloadThreshold,
		OverloadWindow:    time.Duration(cfg.Engine.OverloadWindowSeconds) * time.Second,
		Metrics:           rec,
		Logf:              log.Printf,
	})

	// Initialize handler
	handler := api.NewHandler(eng, directory)

	// Create router
	routerOpts := api.RouterOptions{}
	if cfg.Metrics.Enabled {
		routerOpts.MetricsHandler = rec.Handler()
		routerOpts.MetricsPath = cfg.Metrics.Path
	}
	router := api.NewRouter(handler, routerOpts)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
