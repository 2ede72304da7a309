// Command migrate applies the plant schema to PostgreSQL and scaffolds new
// migration files.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fibc/backend/internal/infrastructure/config"
	"github.com/fibc/backend/internal/infrastructure/logger"
	"github.com/fibc/backend/internal/infrastructure/migration"
	"github.com/fibc/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

const usage = `FIBC plant database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (repairs a dirty schema)
  create <name> [desc]  Create the next numbered migration pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: embedded migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Connection settings come from config.toml or FIBC_DATABASE_* variables.
`

var errUsage = errors.New("invalid usage")

// migrator is the subset of *migration.Migrator the schema commands need.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	GoTo(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
}

func main() {
	dir := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	err = run(flag.Args(), *dir, os.Stdout, log)
	_ = log.Sync()
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
	}
	if err != nil {
		log.Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(args []string, dir string, out io.Writer, log *zap.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve migrations path: %w", err)
		}
		dir = abs
	}

	switch args[0] {
	case "create":
		return create(args[1:], dir, log)
	case "list":
		return list(dir, out)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("SQL migrations target postgres, got driver %q; sqlite databases are built by the server with auto_migrate", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migration.Source{Path: dir}, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return apply(m, args, log)
}

func create(args []string, dir string, log *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: create needs a name", errUsage)
	}
	if dir == "" {
		dir = defaultMigrationsDir
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(dir string, out io.Writer) error {
	var (
		names []string
		err   error
	)
	if dir != "" {
		names, err = migration.ListMigrations(dir)
	} else {
		names, err = migration.ListEmbedded(migrations.FS)
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

// apply runs one schema command against m.
func apply(m migrator, args []string, log *zap.Logger) error {
	arg := func() (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("%w: %s needs an argument", errUsage, args[0])
		}
		return args[1], nil
	}

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		s, err := arg()
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid step count %q", s)
		}
		return m.Steps(n)
	case "goto":
		s, err := arg()
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", s)
		}
		return m.GoTo(uint(v))
	case "force":
		s, err := arg()
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid version %q", s)
		}
		return m.Force(v)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}
