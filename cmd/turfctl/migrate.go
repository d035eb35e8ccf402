package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/turfplot/internal"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|up-to VERSION|down-to VERSION]",
	Short:     "Apply or roll back schema migrations",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down", "status", "up-to", "down-to"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := args[0]

	var version int64
	switch command {
	case "up-to", "down-to":
		if len(args) != 2 {
			return fmt.Errorf("%s requires a version", command)
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		version = v
	default:
		if len(args) != 1 {
			return fmt.Errorf("%s takes no version", command)
		}
	}

	if err := internal.MigrateTo(cmd.Context(), a.db, command, version); err != nil {
		return err
	}

	current, err := internal.MigrationVersion(cmd.Context(), a.db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", current)
	return nil
}
