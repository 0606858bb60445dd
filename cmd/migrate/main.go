package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up                 apply pending migrations
  down               roll back the latest migration
  status             list migrations and whether they ran
  to <version>       move the schema to YYYYMMDDHHMMSS
  create <name>      write a new migration into -dir
  validate           check file names and goose sections
`

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	if err := run(command, args, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command string, args []string, dir string) error {
	// authoring commands work without a database
	switch command {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("missing migration name")
		}
		if dir == "" {
			dir = migrate.SourceDir
		}
		path, err := migrate.Create(dir, args[0], time.Now())
		if err == nil {
			fmt.Println(path)
		}
		return err
	case "validate":
		fsys, err := migrate.Source(dir)
		if err != nil {
			return err
		}
		return migrate.Validate(fsys)
	}

	cfg, logg, err := bootstrap.Load("migrate")
	if err != nil {
		return err
	}
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": command})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	fsys, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, fsys)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		applied, err := runner.Up(ctx)
		if err == nil {
			logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
		}
		return err
	case "down":
		return runner.Down(ctx)
	case "status":
		return runner.Status(ctx, os.Stdout)
	case "to":
		if len(args) == 0 {
			return fmt.Errorf("missing target version")
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q is not YYYYMMDDHHMMSS", args[0])
		}
		return runner.To(ctx, target)
	default:
		return fmt.Errorf("unknown command")
	}
}
