package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prompt2web_server/internal/users"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and manage user records",
}

var usersShowCmd = &cobra.Command{
	Use:   "show <uid>",
	Short: "Print a user record and its prompt limit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openUserStore()
		if err != nil {
			return err
		}
		defer closeDB()

		u, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"user": u, "limit": u.Limit()})
	},
}

var usersSetPlanCmd = &cobra.Command{
	Use:   "set-plan <uid> <free|pro|max>",
	Short: "Change a user's plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, plan := args[0], args[1]
		switch plan {
		case users.PlanFree, users.PlanPro, users.PlanMax:
		default:
			return fmt.Errorf("unknown plan %q", plan)
		}

		store, closeDB, err := openUserStore()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := store.SetPlan(cmd.Context(), uid, plan); err != nil {
			return err
		}
		fmt.Printf("%s is now on the %s plan (%d prompts)\n", uid, plan, users.PromptLimit(plan))
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersShowCmd, usersSetPlanCmd)
	RootCmd.AddCommand(usersCmd)
}

func openUserStore() (*users.Store, func(), error) {
	cfg, _, err := bootstrap()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load config: %w", err)
	}
	db, err := users.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return users.NewStore(db), func() { db.Close() }, nil
}
