package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/riyal-pay/riyal_wallet/internal/infra"
	"github.com/riyal-pay/riyal_wallet/internal/logging"
)

func main() {
	_ = godotenv.Load()
	var (
		dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
		timeout = flag.Duration("timeout", time.Minute, "overall timeout")
	)
	flag.Parse()
	logger := logging.New(os.Getenv("LOG_LEVEL"))

	if *dsn == "" {
		logger.Error("missing DSN: provide via -dsn or DATABASE_URL")
		os.Exit(2)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := infra.NewMigrator(db, infra.Migrations())

	switch cmd := flag.Arg(0); cmd {
	case "up":
		var applied []string
		applied, err = m.Up(ctx)
		for _, name := range applied {
			logger.Info("migration applied", "name", name)
		}
		if err == nil && len(applied) == 0 {
			logger.Info("schema is up to date")
		}
	case "down":
		var name string
		name, err = m.Down(ctx)
		if errors.Is(err, infra.ErrNoMigrationsApplied) {
			logger.Info("nothing to roll back")
			err = nil
		} else if err == nil {
			logger.Info("migration rolled back", "name", name)
		}
	case "status":
		var history []string
		history, err = m.Status(ctx)
		for _, name := range history {
			fmt.Println(name)
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		logger.Error("migrate failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}
