package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cinelist/cineapi/internal/config"
	"github.com/cinelist/cineapi/internal/db"
	"github.com/cinelist/cineapi/internal/keys"
	"github.com/cinelist/cineapi/internal/logging"
	"github.com/cinelist/cineapi/internal/models"
)

// Default quota applied to keys created from the command line. A
// negative limit flag means unlimited.
const (
	defaultDailyLimit   int64 = 1000
	defaultMonthlyLimit int64 = 30000
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var (
	keyName         string
	keyDescription  string
	keyDailyLimit   int64
	keyMonthlyLimit int64
	keyDomains      []string
	keyIPs          []string
	keyExpiresIn    time.Duration
	keyActive       bool
)

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, errOpen := openKeyService()
		if errOpen != nil {
			return errOpen
		}

		params := keys.CreateParams{
			Name:           keyName,
			Description:    keyDescription,
			DailyLimit:     limitFromFlag(keyDailyLimit),
			MonthlyLimit:   limitFromFlag(keyMonthlyLimit),
			AllowedDomains: keyDomains,
			AllowedIPs:     keyIPs,
			CreatedBy:      "cli",
		}
		if keyExpiresIn > 0 {
			expires := time.Now().UTC().Add(keyExpiresIn)
			params.ExpiresAt = &expires
		}

		record, secret, errCreate := svc.Create(context.Background(), params)
		if errCreate != nil {
			return errCreate
		}

		fmt.Printf("Key ID:  %s\n", record.KeyID)
		fmt.Printf("Secret:  %s\n", secret)
		fmt.Println("Store the secret now; it cannot be recovered later.")
		printKey(record)
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, errOpen := openKeyService()
		if errOpen != nil {
			return errOpen
		}

		records, errList := svc.List(context.Background())
		if errList != nil {
			return errList
		}
		if len(records) == 0 {
			fmt.Println("No API keys found.")
			return nil
		}

		fmt.Printf("%-16s %-20s %-10s %10s %12s %10s\n", "KEY ID", "NAME", "STATUS", "DAILY", "MONTHLY", "TOTAL")
		for _, record := range records {
			fmt.Printf("%-16s %-20s %-10s %10s %12s %10d\n",
				record.KeyID,
				truncate(record.Name, 20),
				record.Status(),
				usageColumn(record.DailyUsage, record.DailyLimit),
				usageColumn(record.MonthlyUsage, record.MonthlyLimit),
				record.TotalUsage,
			)
		}
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key-id>",
	Short: "Show one API key in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, errOpen := openKeyService()
		if errOpen != nil {
			return errOpen
		}

		record, errGet := svc.GetByKeyID(context.Background(), args[0])
		if errGet != nil {
			return errGet
		}
		printKey(record)
		return nil
	},
}

var keysUpdateCmd = &cobra.Command{
	Use:   "update <key-id>",
	Short: "Update an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, errOpen := openKeyService()
		if errOpen != nil {
			return errOpen
		}

		params := keys.UpdateParams{}
		flags := cmd.Flags()
		if flags.Changed("name") {
			params.Name = &keyName
		}
		if flags.Changed("description") {
			params.Description = &keyDescription
		}
		if flags.Changed("daily-limit") {
			params.DailyLimit = keys.OptionalInt64{Set: true, Value: limitFromFlag(keyDailyLimit)}
		}
		if flags.Changed("monthly-limit") {
			params.MonthlyLimit = keys.OptionalInt64{Set: true, Value: limitFromFlag(keyMonthlyLimit)}
		}
		if flags.Changed("domains") {
			params.AllowedDomains = keys.OptionalStrings{Set: true, Values: keyDomains}
		}
		if flags.Changed("ips") {
			params.AllowedIPs = keys.OptionalStrings{Set: true, Values: keyIPs}
		}
		if flags.Changed("expires-in") {
			value := keys.OptionalTime{Set: true}
			if keyExpiresIn > 0 {
				expires := time.Now().UTC().Add(keyExpiresIn)
				value.Value = &expires
			}
			params.ExpiresAt = value
		}
		if flags.Changed("active") {
			params.IsActive = &keyActive
		}

		record, errUpdate := svc.Update(context.Background(), args[0], params)
		if errUpdate != nil {
			return errUpdate
		}
		printKey(record)
		return nil
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Deactivate an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, errOpen := openKeyService()
		if errOpen != nil {
			return errOpen
		}

		record, errRevoke := svc.Revoke(context.Background(), args[0])
		if errRevoke != nil {
			return errRevoke
		}
		fmt.Printf("Key %s revoked.\n", record.KeyID)
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <key-id>",
	Short: "Delete an API key and its request logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, errOpen := openKeyService()
		if errOpen != nil {
			return errOpen
		}

		if errDelete := svc.Delete(context.Background(), args[0]); errDelete != nil {
			return errDelete
		}
		fmt.Printf("Key %s deleted.\n", args[0])
		return nil
	},
}

func openKeyService() (*keys.Service, error) {
	cfg, errLoad := config.Load(cfgFile)
	if errLoad != nil {
		return nil, errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return nil, errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	return keys.NewService(conn), nil
}

func limitFromFlag(value int64) *int64 {
	if value < 0 {
		return nil
	}
	return &value
}

func usageColumn(used int64, limit *int64) string {
	if limit == nil {
		return fmt.Sprintf("%d/∞", used)
	}
	return fmt.Sprintf("%d/%d", used, *limit)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func printKey(record *models.APIKey) {
	fmt.Printf("Name:         %s\n", record.Name)
	if record.Description != "" {
		fmt.Printf("Description:  %s\n", record.Description)
	}
	fmt.Printf("Status:       %s\n", record.Status())
	fmt.Printf("Daily:        %s\n", usageColumn(record.DailyUsage, record.DailyLimit))
	fmt.Printf("Monthly:      %s\n", usageColumn(record.MonthlyUsage, record.MonthlyLimit))
	fmt.Printf("Total:        %d\n", record.TotalUsage)
	fmt.Printf("Domains:      %s\n", listColumn(record.Domains()))
	fmt.Printf("IPs:          %s\n", listColumn(record.IPs()))
	if record.ExpiresAt != nil {
		fmt.Printf("Expires:      %s\n", record.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if record.LastUsedAt != nil {
		fmt.Printf("Last used:    %s (%s)\n", record.LastUsedAt.UTC().Format(time.RFC3339), record.LastUsedIP)
	}
	fmt.Printf("Created:      %s by %s\n", record.CreatedAt.UTC().Format(time.RFC3339), record.CreatedBy)
}

func listColumn(values []string) string {
	if len(values) == 0 {
		return "(any)"
	}
	return strings.Join(values, ", ")
}

func init() {
	for _, sub := range []*cobra.Command{keysCreateCmd, keysUpdateCmd} {
		sub.Flags().StringVar(&keyName, "name", "", "human readable key name")
		sub.Flags().StringVar(&keyDescription, "description", "", "free-form description")
		sub.Flags().Int64Var(&keyDailyLimit, "daily-limit", defaultDailyLimit, "daily request limit, negative for unlimited")
		sub.Flags().Int64Var(&keyMonthlyLimit, "monthly-limit", defaultMonthlyLimit, "monthly request limit, negative for unlimited")
		sub.Flags().StringSliceVar(&keyDomains, "domains", nil, "allowed origin domains, empty for any")
		sub.Flags().StringSliceVar(&keyIPs, "ips", nil, "allowed client IPs, empty for any")
		sub.Flags().DurationVar(&keyExpiresIn, "expires-in", 0, "lifetime from now, 0 for never")
	}
	keysUpdateCmd.Flags().BoolVar(&keyActive, "active", true, "activate or deactivate the key")
	_ = keysCreateCmd.MarkFlagRequired("name")

	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysShowCmd, keysUpdateCmd, keysRevokeCmd, keysDeleteCmd)
	rootCmd.AddCommand(keysCmd)
}
