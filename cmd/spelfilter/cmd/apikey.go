package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/spelfilter/internal/core/auth"
	"github.com/solatis/spelfilter/internal/core/config"
	"github.com/solatis/spelfilter/internal/core/db"
	"github.com/solatis/spelfilter/internal/types"
)

var (
	apiKeyOwner string
	apiKeyName  string
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage filter API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key and print it once",
	RunE:  runAPIKeyCreate,
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd)
	apiKeyCreateCmd.Flags().StringVar(&apiKeyOwner, "owner", "", "owner the key authenticates as")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyName, "name", "", "label for the key")
	apiKeyCreateCmd.MarkFlagRequired("owner")
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	if err := requireDBURL(); err != nil {
		return err
	}
	ctx := cmd.Context()

	secretID, secret, err := config.SigningSecret()
	if err != nil {
		return fmt.Errorf("failed to load signing secret: %w", err)
	}

	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return err
	}
	defer store.Close()

	key, hash, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}
	rec := &types.APIKey{
		APIKeyID:  types.NewAPIKeyID(),
		Owner:     apiKeyOwner,
		Name:      apiKeyName,
		SecretID:  secretID,
		KeyHash:   hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertAPIKey(ctx, rec); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	slog.Info("api key created", "api_key_id", rec.APIKeyID, "owner", rec.Owner)
	fmt.Fprintln(stdout, key)
	return nil
}
