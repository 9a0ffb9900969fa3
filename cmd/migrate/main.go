package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/convexa-app/backoffice-backend/pkg/config"
	"github.com/convexa-app/backoffice-backend/pkg/db"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up        apply all pending migrations (default)
  down      roll back the latest migration
  status    print migration status
  version   migrate to the version given by -to
  create    scaffold a new migration named by -name
  validate  check migration filenames and goose markers

flags:
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	name := flag.String("name", "", "migration name for the create command")
	to := flag.String("to", "", "target version (YYYYMMDDHHMMSS) for the version command")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
		"dir":     *dir,
	})

	// create and validate work on files alone, no database needed
	switch command {
	case "create":
		if *name == "" {
			fatal("create needs -name")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fatal("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fatal("validate migrations: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal("connect database: %v", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fatal("unwrap sql.DB: %v", err)
	}

	switch command {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, command); err != nil {
			fatal("goose %s: %v", command, err)
		}
	case "version":
		if *to == "" {
			fatal("version needs -to")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *to); err != nil {
			fatal("goose version %s: %v", *to, err)
		}
	default:
		flag.Usage()
		fatal("unknown command %q", command)
	}

	logg.Info(ctx, "migration command finished")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
