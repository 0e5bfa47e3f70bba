package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/identity"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Inspect registered people",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered people",
	Long: `List registered people ordered naturally by employee ID.

Examples:
  face-attendance identities list
  face-attendance identities list --search novak`,
	RunE: runIdentitiesList,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)

	identitiesListCmd.Flags().String("search", "", "Filter by name (accent-insensitive) or employee ID")
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	identities, err := store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}
	total := len(identities)

	identities = identity.Filter(identities, mustGetString(cmd, "search"))
	identity.SortByEmployeeCode(identities)

	if len(identities) == 0 {
		fmt.Println("No matching identities")
		return nil
	}

	fmt.Printf("%-6s %-14s %-32s %s\n", "ID", "EMPLOYEE ID", "NAME", "REGISTERED")
	for _, i := range identities {
		fmt.Printf("%-6d %-14s %-32s %s\n", i.ID, i.EmployeeCode, i.Name, i.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("\nShowing %d of %d\n", len(identities), total)
	return nil
}
