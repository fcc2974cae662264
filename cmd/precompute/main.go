// Command precompute renders every player comparison plot into the
// configured plot store.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/rinkxg/internal/app"
	"github.com/okian/rinkxg/internal/config"
	"github.com/okian/rinkxg/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		_, _ = os.Stderr.WriteString("precompute failed: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Get()

	svc, closeClients, err := app.NewFromConfig(ctx, cfg, log.Named("service"))
	if err != nil {
		return err
	}
	defer func() { _ = closeClients() }()
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	report, err := svc.Precompute(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
