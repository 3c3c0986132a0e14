// Package main applies the embedded schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate steps N
//	migrate force VERSION
//	migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"stockroom/internal/core/config"
	"stockroom/internal/infrastructure/storage/postgres"
	"stockroom/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.IsDevelopment()})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	if err := run(ctx, cfg.Database.URL, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalw("migration failed", "command", os.Args[1], "error", err)
	}
}

func run(ctx context.Context, databaseURL, cmd string, args []string) (err error) {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); err == nil {
			err = cerr
		}
	}()

	switch cmd {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(ctx, n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(ctx, v)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		logger.Info(ctx, "schema version", "version", v, "dirty", dirty)
		return nil
	default:
		usage()
		return nil
	}
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one integer argument")
	}
	return strconv.Atoi(args[0])
}

func usage() {
	fmt.Println("usage: migrate up|down|version|steps N|force VERSION")
	os.Exit(2)
}
