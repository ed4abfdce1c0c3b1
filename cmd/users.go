package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage reader accounts",
}

var usersPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant moderation rights to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], model.RoleAdmin)
	},
}

var usersDemoteCmd = &cobra.Command{
	Use:   "demote <email>",
	Short: "Revoke moderation rights from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], model.RoleRegular)
	},
}

func setRole(cmd *cobra.Command, email, role string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.GetUserByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("looking up %s: %w", email, err)
	}
	if err := db.SetUserRole(cmd.Context(), user.ID, role); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Username, user.Email, role)
	return nil
}

func init() {
	usersCmd.AddCommand(usersPromoteCmd)
	usersCmd.AddCommand(usersDemoteCmd)
}
