package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"channel-relay/internal/app"
	"channel-relay/internal/config"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// ---- Clients and handler ----
	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build relay", "err", err)
		os.Exit(1)
	}

	lambda.Start(a.Handler.Handle)
}
