package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/chiplogic/internal/app"
	"github.com/dmitrijs2005/chiplogic/internal/buildinfo"
	"github.com/dmitrijs2005/chiplogic/internal/config"
	"github.com/dmitrijs2005/chiplogic/internal/console"
	"github.com/dmitrijs2005/chiplogic/internal/filex"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.NewFileLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	a, err := app.NewApp(cfg, logger.With("station", cfg.StationNumber))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Bootstrap(ctx); err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	if ok, _ := filex.Exists(cfg.DefaultLoginFile); ok {
		fmt.Printf("Default login credentials are in %s\n", cfg.DefaultLoginFile)
	}

	console.New(a, os.Stdin, os.Stdout).Run(ctx)
	return nil
}
