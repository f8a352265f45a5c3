package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|redo|status|version|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "name for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	if err := run(*cmd, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string) error {
	var migrations fs.FS = migrate.Embedded()
	if dir != "" {
		migrations = os.DirFS(dir)
	}

	switch cmd {
	case "create":
		if dir == "" {
			dir = migrate.DefaultDir
		}
		file, err := migrate.CreateSQLMigration(dir, name)
		if err != nil {
			return err
		}
		fmt.Println("created", file)
		return nil
	case "validate":
		if err := migrate.Validate(migrations); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	case "version":
		if version == "" {
			return fmt.Errorf("-version is required")
		}
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.FeatureFlags.UseSQLite {
		return fmt.Errorf("goose migrations target postgres; sqlite builds its schema on startup")
	}
	logg := logger.ForService("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": cmd})

	client, err := db.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer client.Close()
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}

	runner, err := migrate.NewRunner(sqlDB, migrations, os.Stdout)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, cmd, version); err != nil {
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}
