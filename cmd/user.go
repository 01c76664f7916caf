// cmd/user.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/markb/glogin/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect accounts",
	Long:  `Commands for looking up local accounts and their Google links.`,
}

var userGetCmd = &cobra.Command{
	Use:   "get <google-id>",
	Short: "Show the account linked to a Google user id",
	Long: `Look up the local account linked to a Google user id.

Examples:
  glogin user get 108 --db data.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		s := store.New(database.Privileged())

		link, err := s.FindLinkByExternalID(ctx, args[0])
		if errors.Is(err, store.ErrLinkNotFound) {
			return fmt.Errorf("no account linked to %s", args[0])
		}
		if err != nil {
			return err
		}
		account, err := s.GetAccount(ctx, link.UserID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\t%s\n", account.ID)
		fmt.Fprintf(w, "USERNAME\t%s\n", account.Username)
		fmt.Fprintf(w, "NAME\t%s %s\n", account.FirstName, account.LastName)
		fmt.Fprintf(w, "EMAIL\t%s\n", account.Email)
		fmt.Fprintf(w, "GOOGLE ID\t%s\n", link.ExternalID)
		fmt.Fprintf(w, "LINKED\t%s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))
		if account.LastSignInAt != nil {
			fmt.Fprintf(w, "LAST SIGN IN\t%s\n", account.LastSignInAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Long:  `Display local accounts, oldest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		database, err := openDatabase(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()

		accounts, err := store.New(database.Privileged()).ListAccounts(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL\tCREATED")
		for _, a := range accounts {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\n", a.ID, a.Username, a.FirstName, a.LastName, a.Email,
				a.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userGetCmd)
	userCmd.AddCommand(userListCmd)

	userListCmd.Flags().Int("limit", 100, "Maximum number of accounts to show")
}
