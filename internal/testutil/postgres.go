// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-api/internal/database"
	"storefront-api/migrations"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Teardown closes the pool and terminates the container.
type Teardown func(ctx context.Context) error

// StartPostgres runs postgres:15 in a container and applies every migration.
func StartPostgres(ctx context.Context) (*sql.DB, Teardown, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = dbContainer.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		_ = dbContainer.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	teardown := func(ctx context.Context) error {
		_ = db.Close()
		return dbContainer.Terminate(ctx)
	}

	if err := database.RunMigrations(db, migrations.FS, zap.NewNop()); err != nil {
		_ = teardown(ctx)
		return nil, nil, err
	}

	return db, teardown, nil
}
