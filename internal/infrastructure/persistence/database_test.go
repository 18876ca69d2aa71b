package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/config"
	"github.com/resale/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database over a mocked postgres connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestNewDatabase(t *testing.T) {
	t.Run("sqlite file with auto-migrate and tracing", func(t *testing.T) {
		cfg := &config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			SQLitePath:  filepath.Join(t.TempDir(), "backoffice.db"),
			AutoMigrate: true,
		}
		tracing := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), zap.NewNop())

		db, err := NewDatabase(cfg, WithTracing(tracing))
		require.NoError(t, err)
		defer db.Close()

		assert.NoError(t, db.Ping())
		assert.True(t, db.DB.Migrator().HasTable("invoice_documents"))
		assert.True(t, db.DB.Migrator().HasTable("credit_notes"))

		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MaxOpenConnections)
	})

	t.Run("memory driver has no SQL database", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverMemory})
		assert.ErrorContains(t, err, `driver "memory" has no SQL database`)
	})
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	assert.NoError(t, db.Ping())

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	assert.ErrorIs(t, db.Ping(), sql.ErrConnDone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_SaveWithLockSQL(t *testing.T) {
	ctx := context.Background()

	t.Run("updates guarded by the expected version", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(db.DB)
		inv := newTestInvoice(t, "NF-3001", 0)
		inv.Version = 4

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "invoice_documents" SET`)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), inv.ID, 4).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveWithLock(ctx, inv))
		assert.Equal(t, 5, inv.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows on an existing row is a state conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(db.DB)
		inv := newTestInvoice(t, "NF-3002", 0)
		inv.Version = 2

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "invoice_documents" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "invoice_documents" WHERE id = $1`)).
			WithArgs(inv.ID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := repo.SaveWithLock(ctx, inv)
		requireCode(t, err, shared.CodeStateConflict)
		assert.Equal(t, 2, inv.GetVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver errors are returned and the version restored", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(db.DB)
		inv := newTestInvoice(t, "NF-3003", 0)
		inv.Version = 1

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "invoice_documents" SET`)).
			WillReturnError(sql.ErrConnDone)

		err := repo.SaveWithLock(ctx, inv)
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Equal(t, 1, inv.GetVersion())
	})
}
