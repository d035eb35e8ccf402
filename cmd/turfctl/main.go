// Command turfctl runs maintenance and reporting tasks against the turfplot
// database without going through the HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/turfplot/internal"
	"github.com/DukeRupert/turfplot/internal/cache"
	"github.com/DukeRupert/turfplot/internal/repository"
	"github.com/DukeRupert/turfplot/internal/service"
)

// app holds what every subcommand needs once the root command has opened
// the database.
type app struct {
	cfg    *internal.Config
	logger *slog.Logger
	db     *sql.DB

	users      service.UserService
	plots      service.PlotService
	treatments service.TreatmentService
	reports    service.ReportService
}

var a = &app{}

var rootCmd = &cobra.Command{
	Use:           "turfctl",
	Short:         "Manage turf research plots and treatment reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return a.open(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		a.close()
	},
}

func (a *app) open(ctx context.Context) error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	a.cfg = cfg
	a.logger = internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}
	a.db = db

	repo := repository.New(db)
	a.users = service.NewUserService(repo, a.logger, service.UserServiceConfig{SessionDuration: cfg.SessionDuration})
	a.plots = service.NewPlotService(repo, cache.New(nil, 0, a.logger), a.logger)
	a.treatments = service.NewTreatmentService(db, repo, a.plots, a.logger)
	a.reports = service.NewReportService(a.treatments, a.plots, nil, nil, cfg.ReportTitle, a.logger)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, treeCmd, descendantsCmd, exportCmd, grantStaffCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
