package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YashSaxena9/loggery"
	"github.com/YashSaxena9/loggery/viewer"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "loggery.toml", "Path to TOML config file")
	addr := flag.String("addr", "", "Viewer listen address (overrides config)")
	capacity := flag.Int("capacity", 0, "Ring buffer capacity (overrides config)")
	levelStr := flag.String("level", "", "Minimum log level (overrides config)")
	demo := flag.Bool("demo", true, "Run synthetic log producers")
	flag.Parse()

	cfg, err := loggery.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if *addr != "" {
		cfg.Viewer.Addr = *addr
	}
	if *capacity > 0 {
		cfg.Capacity = *capacity
	}
	if *levelStr != "" {
		cfg.Level = *levelStr
	}

	logger, err := loggery.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	loggery.SetDefault(logger)
	log.Printf("Ring buffer initialized. Capacity: %d records", cfg.Capacity)

	// Viewer server in a goroutine
	srv := viewer.New(logger.Publisher(), cfg.Viewer)
	go func() {
		log.Printf("Viewer available at http://localhost%s", cfg.Viewer.Addr)
		if err := srv.Start(); err != nil {
			log.Printf("Viewer stopped: %v", err)
		}
	}()

	// Synthetic producers so the viewer has something to show
	prodCtx, stopProducers := context.WithCancel(context.Background())
	if *demo {
		go produceHTTP(prodCtx, logger.Scope("http"))
		go produceDB(prodCtx, logger.Scope("db"))
		go produceJobs(prodCtx, logger.Scope("jobs"))
	}

	// Graceful shutdown hook
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)
	stopProducers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Viewer shutdown error: %v", err)
	}

	log.Println("loggery exited gracefully.")
}

// produceHTTP emits request-style traffic, mostly Info with the
// occasional slow request and server error.
func produceHTTP(ctx context.Context, l *loggery.Logger) {
	paths := []string{"/", "/login", "/api/items", "/api/items/42", "/healthz"}
	ticker := time.NewTicker(400 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path := paths[rand.Intn(len(paths))]
			ms := rand.Intn(250)
			switch {
			case rand.Intn(50) == 0:
				l.Errorf("GET %s 500 (%dms)", path, ms)
			case ms > 200:
				l.Warnf("GET %s 200 slow (%dms)", path, ms)
			default:
				l.Infof("GET %s 200 (%dms)", path, ms)
			}
		}
	}
}

// produceDB emits query traces with rare connection warnings.
func produceDB(ctx context.Context, l *loggery.Logger) {
	ticker := time.NewTicker(700 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rows := rand.Intn(500)
			l.Tracef("SELECT returned %d rows", rows)
			if rand.Intn(20) == 0 {
				l.Warn("connection pool above 80% utilization")
			}
		}
	}
}

// produceJobs emits periodic batch-job lifecycle messages.
func produceJobs(ctx context.Context, l *loggery.Logger) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			l.Debugf("job %d started", n)
			if rand.Intn(10) == 0 {
				l.Errorf("job %d failed: upstream timeout", n)
			} else {
				l.Infof("job %d finished", n)
			}
		}
	}
}
