package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/urfave/cli"

	clientconfig "github.com/estateflow-io/estateflow-client/cmd/estateflow-client/config"
	estateflowclient "github.com/estateflow-io/estateflow-client/internal/estateflow-client"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	app := cli.NewApp()
	app.Name = "estateflow-client"
	app.Version = Version
	app.Usage = "Wallet session, network and request submission client for EstateFlow"
	app.Commands = commands()
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serve(*cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := clientconfig.Load()
	if err != nil {
		log.Error("failed to parse config", "error", err)
		return err
	}
	return estateflowclient.Run(ctx, cfg, estateflowclient.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// withApp builds and initializes the client for one-shot commands.
func withApp(fn func(ctx context.Context, app *estateflowclient.App) error) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := clientconfig.Load()
	if err != nil {
		return err
	}
	app, err := estateflowclient.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Error("close failed", "error", closeErr)
		}
	}()

	if err := app.Init(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}
