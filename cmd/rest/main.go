package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rfp-answer-engine/internal/bootstrap"
	"rfp-answer-engine/internal/config"
	"rfp-answer-engine/internal/server"
	"rfp-answer-engine/internal/tracer"
	"rfp-answer-engine/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// Tracing failures are not fatal; the service runs untraced.
	shutdownTracer, err := tracer.Init(context.Background(), cfg.Telemetry, cfg.App.Environment)
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}
	defer shutdownTracer(context.Background())

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "production")
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Panicf("Unable to start pipeline consumer: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
