package main

import (
	"context"
	"log"
	"os"

	"ai-minutes-client/internal/bootstrap"
	"ai-minutes-client/internal/config"
	"ai-minutes-client/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Otel.Enabled, cfg.Otel.Endpoint)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 4. Run CLI
	app := newCLIApp(container)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
