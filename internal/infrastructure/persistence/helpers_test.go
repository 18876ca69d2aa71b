package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testEpoch     = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	testWarehouse = receiving.Actor{Name: "Ana", Department: receiving.DepartmentWarehouse}
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// newTestInvoice creates an unsaved invoice whose creation time is offset
// from the epoch so queue ordering can be asserted.
func newTestInvoice(t *testing.T, number string, offset time.Duration) *receiving.Invoice {
	t.Helper()
	wf := receiving.NewWorkflow(receiving.DefaultPolicy(), shared.UUIDGenerator{}, shared.NewFixedClock(testEpoch.Add(offset)))
	inv, err := wf.CreateInvoice(receiving.CreateInvoiceParams{
		SupplierID:       uuid.New(),
		InvoiceNumber:    number,
		TotalValue:       decimal.RequireFromString("1500.00"),
		QuantityInformed: 3,
		PaymentTerms:     receiving.PaymentTermsPostPaid,
	}, testWarehouse)
	require.NoError(t, err)
	return inv
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, shared.NewDomainError(code, ""))
}
