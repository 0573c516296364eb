package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solestate/estated/internal/config"
	restservice "github.com/solestate/estated/internal/interface/rest"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "estated"
	app.Usage = "fractional real-estate share registry"
	app.Flags = config.Flags
	app.Action = mainAction
	app.Commands = append(
		app.Commands,
		&listPropertyCmd,
		&propertiesCmd,
		&propertyCmd,
		&historyCmd,
		&quoteCmd,
		&buySharesCmd,
		&positionCmd,
		&portfolioCmd,
		&accountCmd,
		&fundCmd,
		&auditCmd,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func mainAction(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := restservice.Config{
		Port:         cfg.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	svc, err := restservice.NewService(Version, svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("estated config: %s", cfg)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}
