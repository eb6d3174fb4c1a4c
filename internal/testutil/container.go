package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PGContainer starts a throwaway PostgreSQL container, applies migrations,
// and returns the connection plus a cleanup function that also terminates
// the container.
//
// Used by integration tests when no shared database is available. Set
// TESTCONTAINERS_DISABLED to skip instead of pulling images in restricted
// environments.
func PGContainer(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	if os.Getenv("TESTCONTAINERS_DISABLED") != "" {
		t.Skip("TESTCONTAINERS_DISABLED set, skipping container test")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("consentry_test"),
		tcpostgres.WithUsername("consentry"),
		tcpostgres.WithPassword("consentry"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("pgcontainer: start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("pgcontainer: connection string: %v", err)
	}

	db, dbCleanup := openAndMigrate(t, dsn)
	cleanup := func() {
		dbCleanup()
		_ = container.Terminate(ctx)
	}
	return db, cleanup
}
