package receiving

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/cache"
	"github.com/resale/backoffice/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	warehouse = receiving.Actor{Name: "Ana", Department: receiving.DepartmentWarehouse}
	finance   = receiving.Actor{Name: "Bruno", Department: receiving.DepartmentFinance}

	epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	clock     *shared.FixedClock
	invoices  *persistence.MemoryInvoiceRepository
	notes     *persistence.MemoryCreditNoteRepository
	publisher *recordingPublisher
	svc       *InvoiceService
	credits   *CreditNoteService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := shared.NewFixedClock(epoch)
	ids := shared.UUIDGenerator{}
	logger := zaptest.NewLogger(t)

	f := &fixture{
		clock:     clock,
		invoices:  persistence.NewMemoryInvoiceRepository(),
		notes:     persistence.NewMemoryCreditNoteRepository(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewInvoiceService(f.invoices, receiving.NewWorkflow(receiving.DefaultPolicy(), ids, clock), clock, logger)
	f.svc.SetEventPublisher(f.publisher)

	store := cache.NewInMemoryIdempotencyStore(clock, 0)
	t.Cleanup(func() { _ = store.Close() })
	f.svc.SetIdempotencyStore(store, shared.DefaultIdempotencyConfig())

	f.credits = NewCreditNoteService(f.invoices, f.notes, receiving.NewCreditNoteIssuer(ids, clock), logger)
	f.credits.SetEventPublisher(f.publisher)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) create(t *testing.T, terms receiving.PaymentTerms, total string, qty int) *InvoiceResponse {
	t.Helper()
	resp, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		SupplierID:       uuid.New(),
		InvoiceNumber:    "NF-" + uuid.NewString()[:8],
		PaymentTerms:     string(terms),
		QuantityInformed: qty,
		TotalValue:       dec(total),
	}, warehouse, "")
	require.NoError(t, err)
	return resp
}

func (f *fixture) register(t *testing.T, id uuid.UUID, n int, unitCost string) *InvoiceResponse {
	t.Helper()
	lines := make([]LineRequest, n)
	for i := range lines {
		lines[i] = LineRequest{Category: "Smartphone", Brand: "Acme", Model: "X1", UnitCost: dec(unitCost), Quantity: 1}
	}
	resp, err := f.svc.RegisterProducts(context.Background(), id, RegisterProductsRequest{Lines: lines}, warehouse)
	require.NoError(t, err)
	return resp
}

func lineIDs(lines []receiving.ProductLine) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, shared.NewDomainError(code, ""))
}

// racingRepository lets another writer save the invoice between the read and
// the write of the next mutation.
type racingRepository struct {
	*persistence.MemoryInvoiceRepository
	race bool
}

func (r *racingRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.Invoice, error) {
	inv, err := r.MemoryInvoiceRepository.FindByID(ctx, id)
	if err != nil || !r.race {
		return inv, err
	}
	r.race = false
	other, err := r.MemoryInvoiceRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	other.Notes = "edited elsewhere"
	if err := r.MemoryInvoiceRepository.SaveWithLock(ctx, other); err != nil {
		return nil, err
	}
	return inv, nil
}

type staticNames map[uuid.UUID]string

func (s staticNames) ResolveSupplierName(_ context.Context, id uuid.UUID) (string, error) {
	name, ok := s[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}
