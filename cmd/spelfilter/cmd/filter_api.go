package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/spelfilter/internal/core/api"
	"github.com/solatis/spelfilter/internal/core/auth"
	"github.com/solatis/spelfilter/internal/core/config"
	"github.com/solatis/spelfilter/internal/core/db"
	"github.com/solatis/spelfilter/internal/core/server"
)

var filterAPICmd = &cobra.Command{
	Use:   "filter-api",
	Short: "Start gRPC filter API service",
	RunE:  runFilterAPI,
}

func init() {
	rootCmd.AddCommand(filterAPICmd)
	filterAPICmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	filterAPICmd.Flags().Int("port", 50061, "gRPC server port")
}

func runFilterAPI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}

	url := dbURL
	if url == "" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		url = "sqlite://" + filepath.Join(cfg.DataDir, "spelfilter.db")
	}
	database, err := db.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return fmt.Errorf("migration %s not applied - run 'spelfilter migrate' first", s.ID)
		}
	}

	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to load queries: %w", err)
	}
	defer store.Close()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set SF_HMAC_SECRET environment variable)")
	}

	authenticator := auth.NewAuthenticator(secrets, store, logger)

	service, err := api.NewFilterService(store, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting filter API", "version", Version, "addr", cfg.Addr())
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	}
}
