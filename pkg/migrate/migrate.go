// Package migrate applies the goose SQL migrations shipped with the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written by the create command.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner drives a goose provider and reports applied migrations to out.
type Runner struct {
	provider *goose.Provider
	out      io.Writer
}

func NewRunner(db *sql.DB, migrations fs.FS, out io.Writer) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: sql db required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{provider: provider, out: out}, nil
}

// Run executes one of up, down, redo, status or version. version requires
// arg, the target YYYYMMDDHHMMSS version, and migrates in whichever
// direction reaches it.
func (r *Runner) Run(ctx context.Context, command, arg string) error {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		r.report(results...)
		return err
	case "down":
		result, err := r.provider.Down(ctx)
		r.report(result)
		return err
	case "redo":
		down, err := r.provider.Down(ctx)
		r.report(down)
		if err != nil {
			return err
		}
		up, err := r.provider.UpByOne(ctx)
		r.report(up)
		return err
	case "status":
		return r.status(ctx)
	case "version":
		return r.migrateTo(ctx, arg)
	}
	return fmt.Errorf("migrate: unknown command %q", command)
}

func (r *Runner) migrateTo(ctx context.Context, arg string) error {
	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("migrate: invalid version %q: %w", arg, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("migrate: read db version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case target > current:
		results, err = r.provider.UpTo(ctx, target)
	case target < current:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(results...)
	return err
}

func (r *Runner) status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(r.out, "%-8s %-20s %s\n", s.State, applied, s.Source.Path)
	}
	return nil
}

func (r *Runner) report(results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fmt.Fprintf(r.out, "%-4s %s (%s)\n", res.Direction, res.Source.Path, res.Duration.Round(time.Millisecond))
	}
}
