package internal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations applies every pending migration.
func RunMigrations(db *sql.DB) error {
	return MigrateTo(context.Background(), db, "up", 0)
}

// MigrateTo runs a goose command against the embedded migrations. version is
// used by "up-to" and "down-to" only.
func MigrateTo(ctx context.Context, db *sql.DB, command string, version int64) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, "migrations")
	case "up-to":
		return goose.UpToContext(ctx, db, "migrations", version)
	case "down":
		return goose.DownContext(ctx, db, "migrations")
	case "down-to":
		return goose.DownToContext(ctx, db, "migrations", version)
	case "status":
		goose.SetLogger(slogGooseLogger{slog.Default()})
		return goose.StatusContext(ctx, db, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, db *sql.DB) (int64, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}

// slogGooseLogger routes goose status output through slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error("migration", "message", fmt.Sprintf(format, v...))
}

func (l slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info("migration", "message", fmt.Sprintf(format, v...))
}
