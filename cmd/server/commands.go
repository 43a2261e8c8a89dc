// File: cmd/server/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ordena_backend/internal/app"
	"ordena_backend/internal/catalog"
	"ordena_backend/internal/config"
	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/elasticsearch"
	"ordena_backend/internal/platform/logger"
	"ordena_backend/internal/product"
	"ordena_backend/internal/seed"
	"ordena_backend/internal/user"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ordena",
		Short:         "Ordena inventory and transfer backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API and background jobs",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
		},
		newMigrateCommand(),
		newSeedCommand(),
		&cobra.Command{
			Use:   "sync-products",
			Short: "Rebuild the Elasticsearch products index from the database",
			RunE:  func(cmd *cobra.Command, args []string) error { return syncProducts(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "hash-passwords",
			Short: "Re-hash legacy plaintext passwords with bcrypt",
			RunE:  func(cmd *cobra.Command, args []string) error { return hashPasswords(cmd.Context()) },
		},
	)
	return root
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
		return err
	}
	log.Println("INFO: Server shutdown complete.")
	return nil
}

// tooling holds what the one-shot commands need without the HTTP stack.
type tooling struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	close  func()
}

func openTooling() (*tooling, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	db, cleanup, err := app.ProvideDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}
	return &tooling{cfg: cfg, logger: appLogger, db: db, close: func() {
		cleanup()
		_ = appLogger.Sync()
	}}, nil
}

func (t *tooling) users() user.Service {
	locations := location.NewService(location.NewGORMRepository(t.db), t.logger)
	return user.NewService(user.NewGORMRepository(t.db), locations, database.NewTransactor(t.db), t.logger)
}

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema (SQLite is migrated on start)",
	}
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDriver == config.DriverSQLite {
				t, err := openTooling()
				if err != nil {
					return err
				}
				t.close()
				return nil
			}
			if err := database.MigrateUp(cfg.DBSource); err != nil {
				return err
			}
			log.Println("INFO: Migrations applied.")
			return nil
		},
	}
	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps must be a number: %w", err)
				}
				steps = n
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return database.MigrateDown(cfg.DBSource, steps)
		},
	}
	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			v, dirty, err := database.MigrationVersion(cfg.DBSource)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}
	migrateCmd.AddCommand(up, down, version)
	return migrateCmd
}

func newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load warehouses, branches, catalogue entries and users from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			t, err := openTooling()
			if err != nil {
				return err
			}
			defer t.close()

			locations := location.NewService(location.NewGORMRepository(t.db), t.logger)
			entries := catalog.NewService(catalog.NewGORMRepository(t.db), t.logger)
			res, err := seed.NewSeeder(locations, entries, t.users(), t.logger).Apply(cmd.Context(), f)
			if err != nil {
				return err
			}
			t.logger.Info("Seed applied",
				zap.Int("warehouses", res.Warehouses),
				zap.Int("branches", res.Branches),
				zap.Int("brands", res.Brands),
				zap.Int("categories", res.Categories),
				zap.Int("users", res.Users),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "path to the seed YAML file")
	return cmd
}

func syncProducts(ctx context.Context) error {
	t, err := openTooling()
	if err != nil {
		return err
	}
	defer t.close()

	client, err := elasticsearch.NewClient(t.cfg, t.logger)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("ELASTICSEARCH_URL must be set to sync products")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	if err := elasticsearch.CreateProductsIndexIfNotExists(ctx, client, t.logger); err != nil {
		return err
	}

	// Only the repository and the index take part in a full sync.
	products := product.NewService(product.NewGORMRepository(t.db), nil, nil, nil,
		product.NewSearchIndex(client, t.logger), nil, database.NewTransactor(t.db), t.logger)
	n, err := products.SyncIndex(ctx)
	if err != nil {
		return fmt.Errorf("product sync failed after %d documents: %w", n, err)
	}
	t.logger.Info("Product synchronisation completed", zap.Int("indexed", n))
	return nil
}

func hashPasswords(ctx context.Context) error {
	t, err := openTooling()
	if err != nil {
		return err
	}
	defer t.close()

	n, err := t.users().RehashLegacyPasswords(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("Legacy passwords re-hashed", zap.Int("updated", n))
	return nil
}
