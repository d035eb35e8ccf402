package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
)

var revokeStaff bool

var grantStaffCmd = &cobra.Command{
	Use:   "grant-staff EMAIL",
	Short: "Give an account staff access (or take it away with --revoke)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := setStaff(cmd.Context(), a.users, args[0], !revokeStaff)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s staff=%t\n", user.Email, user.IsStaff)
		return nil
	},
}

func init() {
	grantStaffCmd.Flags().BoolVar(&revokeStaff, "revoke", false, "remove staff access instead")
}

// operator is the actor for changes made from the command line. Its id
// matches no account, so the self-demotion guard never applies.
var operator = &domain.User{ID: uuid.Nil, IsStaff: true, IsActive: true}

// setStaff finds the account by email and sets its staff flag.
func setStaff(ctx context.Context, users service.UserService, email string, staff bool) (*domain.User, error) {
	all, err := users.List(ctx)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range all {
		if u.Email == email {
			return users.Update(ctx, operator, domain.UserUpdateParams{UserID: u.ID, IsStaff: &staff})
		}
	}
	return nil, fmt.Errorf("no account with email %q", email)
}
