// Command relayctl runs operator tasks against the relay's storage and
// speech backends using the same configuration as the service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"channel-relay/internal/app"
	"channel-relay/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "relayctl",
	Short:         "Operate the channel relay's storage and speech backends",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}

// build reads the configuration from the environment and opens every client.
func build(ctx context.Context) (*app.App, config.Config, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, config.Config{}, err
	}
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	return a, cfg, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		slog.Warn("failed to close clients", "err", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
