package receiving

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	warehouse = Actor{Name: "Ana", Department: DepartmentWarehouse}
	finance   = Actor{Name: "Bruno", Department: DepartmentFinance}

	epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	clock *shared.FixedClock
	wf    *Workflow
}

func newFixture() *fixture {
	clock := shared.NewFixedClock(epoch)
	return &fixture{
		clock: clock,
		wf:    NewWorkflow(DefaultPolicy(), shared.UUIDGenerator{}, clock),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) create(t *testing.T, terms PaymentTerms, total string, qty int) *Invoice {
	t.Helper()
	inv, err := f.wf.CreateInvoice(CreateInvoiceParams{
		SupplierID:       uuid.New(),
		InvoiceNumber:    "NF-" + uuid.NewString()[:8],
		TotalValue:       dec(total),
		QuantityInformed: qty,
		PaymentTerms:     terms,
	}, warehouse)
	require.NoError(t, err)
	return inv
}

// units returns n single-unit lines whose cost adds up to n*unitCost
func units(n int, unitCost string) []LineInput {
	inputs := make([]LineInput, n)
	for i := range inputs {
		inputs[i] = LineInput{Category: "Smartphone", Brand: "Acme", Model: "X1", UnitCost: dec(unitCost), Quantity: 1}
	}
	return inputs
}

func lineIDs(lines []ProductLine) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}

func snapshot(t *testing.T, inv *Invoice) []byte {
	t.Helper()
	b, err := json.Marshal(inv)
	require.NoError(t, err)
	return b
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, shared.NewDomainError(code, ""))
}
