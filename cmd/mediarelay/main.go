// Command mediarelay serves only the media streaming websockets, bridging
// each connection to a realtime AI session.
package main

import (
	"callautomation-server/internal/bootstrap"
	"callautomation-server/internal/config"
	"callautomation-server/internal/observability"
	"callautomation-server/internal/server"
	"context"
)

func main() {
	logger := observability.NewLogger()
	ctx := context.Background()

	cfg, err := config.Load(config.ProfileRelay)
	if err != nil {
		logger.Fatal(ctx, "failed to load configuration", err)
	}

	deps, err := bootstrap.InitializeRelay(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}

	srv := server.New(cfg, deps, server.ModeRelay, logger)
	srv.Setup()
	if err := srv.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start relay", err)
	}
	if err := srv.WaitForShutdown(ctx); err != nil {
		logger.Fatal(ctx, "shutdown failed", err)
	}
}
