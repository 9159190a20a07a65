package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/reportcard/pkg/config"
	"github.com/noah-isme/reportcard/pkg/database"
	"github.com/noah-isme/reportcard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}

	cli, err := newCommandLine(cfg, db, logr, os.Stdout)
	if err != nil {
		_ = db.Close()
		logr.Fatal("failed to set up", zap.Error(err))
	}

	runErr := cli.run(os.Args)
	if err := cli.metrics.Flush(cfg.Metrics.Textfile); err != nil {
		logr.Warn("metrics not written", zap.Error(err))
	}
	_ = db.Close()

	if runErr != nil {
		if !errors.Is(runErr, errHelp) {
			fmt.Fprintf(os.Stderr, "error: %s\n", runErr)
		}
		os.Exit(1)
	}
}
