package main

import (
	"context"
	"fmt"
	"os"

	"storefront-api/internal/config"
	"storefront-api/internal/database"
	"storefront-api/internal/logger"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
	"storefront-api/migrations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	catalogFile string

	// Seed flags
	ifEmpty bool

	// Reset flags
	confirmReset bool
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Maintain the storefront database outside the API process",
	Long: `Apply migrations, load the product catalog or wipe the storefront tables.

Connection settings are read from the environment and .env, exactly as the API does.`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db database.Service, log *zap.Logger) error {
			if err := database.RunMigrations(db.DB(), migrations.FS, log); err != nil {
				return err
			}
			return database.GetMigrationStatus(db.DB(), migrations.FS)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert catalog categories and products",
	Long: `Insert every catalog category and product that does not exist yet.

Examples:
  seeder seed                          # Seed from the built-in catalog
  seeder seed --catalog products.json  # Seed from a file
  seeder seed --if-empty               # Only seed a fresh database`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, seeder service.SeederService, log *zap.Logger) error {
			if ifEmpty {
				seeded, err := seeder.SeedIfEmpty(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded: %t\n", seeded)
				return nil
			}

			categories, err := seeder.SeedCategories(ctx)
			if err != nil {
				return err
			}
			products, err := seeder.SeedProducts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories created: %d\nproducts created: %d\n", categories, products)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all orders, products, users and categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmReset {
			return fmt.Errorf("refusing to reset without --yes")
		}
		return withSeeder(cmd.Context(), func(ctx context.Context, seeder service.SeederService, log *zap.Logger) error {
			if err := seeder.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database reset")
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "Catalog JSON file (defaults to SEED_DATA_FILE, then the built-in catalog)")
	seedCmd.Flags().BoolVar(&ifEmpty, "if-empty", false, "Seed only when no categories and no products exist")
	resetCmd.Flags().BoolVar(&confirmReset, "yes", false, "Confirm deleting every row")

	rootCmd.AddCommand(migrateCmd, seedCmd, resetCmd)
}

func withDatabase(ctx context.Context, fn func(ctx context.Context, db database.Service, log *zap.Logger) error) error {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db, log)
}

func withSeeder(ctx context.Context, fn func(ctx context.Context, seeder service.SeederService, log *zap.Logger) error) error {
	return withDatabase(ctx, func(ctx context.Context, db database.Service, log *zap.Logger) error {
		path := catalogFile
		if path == "" {
			path = config.Load().Seed.DataFile
		}
		catalog, err := service.LoadCatalog(path)
		if err != nil {
			return err
		}

		pool := db.DB()
		seeder := service.NewSeederService(
			repository.NewTransactor(pool),
			repository.NewCategoryRepository(pool),
			repository.NewProductRepository(pool),
			repository.NewUserRepository(pool),
			repository.NewOrderRepository(pool),
			catalog,
			log,
		)
		return fn(ctx, seeder, log)
	})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
