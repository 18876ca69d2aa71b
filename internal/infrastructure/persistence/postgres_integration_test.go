//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("backoffice_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(2), version)
	return db
}

func TestPostgresInvoiceRepository(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := NewGormInvoiceRepository(db)

	inv := newTestInvoice(t, "NF-9001", 0)
	require.NoError(t, repo.Create(ctx, inv))

	dup := newTestInvoice(t, "NF-9001", time.Minute)
	dup.SupplierID = inv.SupplierID
	requireCode(t, repo.Create(ctx, dup), shared.CodeAlreadyExists)

	a, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	a.Notes = "first writer"
	require.NoError(t, repo.SaveWithLock(ctx, a))
	requireCode(t, repo.SaveWithLock(ctx, b), shared.CodeStateConflict)

	queue, err := repo.FindByOwner(ctx, receiving.DepartmentWarehouse)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "first writer", queue[0].Notes)
	assert.Equal(t, 2, queue[0].GetVersion())
}
