package receiving

import (
	"testing"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterProducts(t *testing.T) {
	t.Run("over registration leaves counters unchanged", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPartial, "1000", 10)
		before := snapshot(t, inv)

		_, err := f.wf.RegisterProducts(inv, units(11, "100"), warehouse)
		requireCode(t, err, shared.CodeOverRegistration)
		assert.Equal(t, 0, inv.QuantityRegistered())
		assert.Equal(t, before, snapshot(t, inv))
	})

	t.Run("bound counts line quantities", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "1000", 10)
		_, err := f.wf.RegisterProducts(inv, []LineInput{{Category: "Tablet", UnitCost: dec("100"), Quantity: 6}}, warehouse)
		require.NoError(t, err)

		_, err = f.wf.RegisterProducts(inv, []LineInput{{Category: "Tablet", UnitCost: dec("100"), Quantity: 5}}, warehouse)
		requireCode(t, err, shared.CodeOverRegistration)

		_, err = f.wf.RegisterProducts(inv, []LineInput{{Category: "Tablet", UnitCost: dec("100"), Quantity: 4}}, warehouse)
		require.NoError(t, err)
		assert.Equal(t, 10, inv.QuantityRegistered())
	})

	t.Run("zero lines is a no-op", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "1000", 10)
		before := snapshot(t, inv)

		added, err := f.wf.RegisterProducts(inv, nil, warehouse)
		require.NoError(t, err)
		assert.Empty(t, added)
		assert.Equal(t, InvoiceStatusCreated, inv.Status)
		assert.Equal(t, before, snapshot(t, inv))
	})

	t.Run("later batches do not transition", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "1000", 10)
		_, err := f.wf.RegisterProducts(inv, units(3, "100"), warehouse)
		require.NoError(t, err)
		require.Equal(t, InvoiceStatusAwaitingConference, inv.Status)
		entries := len(inv.Timeline)

		_, err = f.wf.RegisterProducts(inv, units(3, "100"), warehouse)
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusAwaitingConference, inv.Status)
		require.Len(t, inv.Timeline, entries+1)
		last := inv.LastTimelineEntry()
		assert.Equal(t, last.StatusBefore, last.StatusAfter)
		assert.True(t, last.FinancialImpact.Equal(dec("300")))
	})

	t.Run("invalid line names its position", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "1000", 10)
		inputs := units(2, "100")
		inputs[1].Quantity = 0

		_, err := f.wf.RegisterProducts(inv, inputs, warehouse)
		requireCode(t, err, shared.CodeValidation)
		assert.Contains(t, err.Error(), "line 2")
		assert.Empty(t, inv.Lines)
	})
}

func TestInspectProducts(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *Invoice, []ProductLine) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "400", 4)
		lines, err := f.wf.RegisterProducts(inv, units(4, "100"), warehouse)
		require.NoError(t, err)
		return f, inv, lines
	}

	t.Run("already inspected", func(t *testing.T) {
		f, inv, lines := setup(t)
		require.NoError(t, f.wf.InspectProducts(inv, lineIDs(lines[:1]), warehouse))
		before := snapshot(t, inv)

		err := f.wf.InspectProducts(inv, lineIDs(lines[:2]), warehouse)
		requireCode(t, err, shared.CodeOverInspection)
		assert.Equal(t, 1, inv.QuantityInspected())
		assert.Equal(t, before, snapshot(t, inv))
	})

	t.Run("unknown and duplicate lines", func(t *testing.T) {
		f, inv, lines := setup(t)
		err := f.wf.InspectProducts(inv, []uuid.UUID{uuid.New()}, warehouse)
		requireCode(t, err, shared.CodeValidation)

		err = f.wf.InspectProducts(inv, []uuid.UUID{lines[0].ID, lines[0].ID}, warehouse)
		requireCode(t, err, shared.CodeValidation)

		err = f.wf.InspectProducts(inv, nil, warehouse)
		requireCode(t, err, shared.CodeValidation)
		assert.Equal(t, 0, inv.QuantityInspected())
	})

	t.Run("not before registration", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "400", 4)
		err := f.wf.InspectProducts(inv, []uuid.UUID{uuid.New()}, warehouse)
		requireCode(t, err, shared.CodeIllegalTransition)
	})

	t.Run("partial registration keeps the conference open", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "400", 4)
		lines, err := f.wf.RegisterProducts(inv, units(2, "100"), warehouse)
		require.NoError(t, err)

		require.NoError(t, f.wf.InspectProducts(inv, lineIDs(lines), warehouse))
		assert.Equal(t, InvoiceStatusPartialConference, inv.Status)
		assert.False(t, inv.IsConferenceComplete())

		more, err := f.wf.RegisterProducts(inv, units(2, "100"), warehouse)
		require.NoError(t, err)
		require.NoError(t, f.wf.InspectProducts(inv, lineIDs(more), warehouse))
		assert.Equal(t, InvoiceStatusAwaitingFinalPayment, inv.Status)
	})

	t.Run("inspected never exceeds registered", func(t *testing.T) {
		f, inv, lines := setup(t)
		for _, l := range lines {
			require.NoError(t, f.wf.InspectProducts(inv, []uuid.UUID{l.ID}, warehouse))
			assert.LessOrEqual(t, inv.QuantityInspected(), inv.QuantityRegistered())
			assert.LessOrEqual(t, inv.QuantityRegistered(), inv.QuantityInformed)
		}
	})
}

func TestMarkDefective(t *testing.T) {
	f := newFixture()
	inv := f.create(t, PaymentTermsPostPaid, "500", 5)
	inputs := units(5, "100")
	inputs[4].New = true
	lines, err := f.wf.RegisterProducts(inv, inputs, warehouse)
	require.NoError(t, err)

	err = f.wf.MarkDefective(inv, lineIDs(lines[:1]), warehouse)
	requireCode(t, err, shared.CodeValidation)

	require.NoError(t, f.wf.InspectProducts(inv, lineIDs(lines[:2]), warehouse))
	require.NoError(t, f.wf.MarkDefective(inv, lineIDs(lines[:1]), warehouse))
	assert.True(t, inv.GetLine(lines[0].ID).Defective)
	assert.Equal(t, 1, inv.AvailableQuantity())
	assert.Equal(t, 2, inv.QuantityInspected())
	assert.True(t, inv.LastTimelineEntry().FinancialImpact.Equal(dec("100")))

	err = f.wf.MarkDefective(inv, lineIDs(lines[:1]), warehouse)
	requireCode(t, err, shared.CodeValidation)

	require.NoError(t, f.wf.InspectProducts(inv, lineIDs(lines[4:]), warehouse))
	err = f.wf.MarkDefective(inv, lineIDs(lines[4:]), warehouse)
	requireCode(t, err, shared.CodeValidation)
	assert.Contains(t, err.Error(), "New category")
}

func TestInspectWithDefects(t *testing.T) {
	t.Run("prepaid conference in one batch keeps its defects", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsFullyPrepaid, "300", 3)
		lines, err := f.wf.RegisterProducts(inv, units(3, "100"), warehouse)
		require.NoError(t, err)
		defective := lineIDs(lines[1:])

		require.NoError(t, f.wf.InspectWithDefects(inv, lineIDs(lines), defective, warehouse))
		assert.Equal(t, InvoiceStatusFinalized, inv.Status)
		assert.True(t, inv.IsClosed())
		assert.Equal(t, 3, inv.QuantityInspected())
		assert.Equal(t, 1, inv.AvailableQuantity())

		total, err := DefectiveLinesCost(inv, defective)
		require.NoError(t, err)
		assert.True(t, total.Equal(dec("200")))
	})

	t.Run("defects may name lines inspected earlier", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsPostPaid, "300", 3)
		lines, err := f.wf.RegisterProducts(inv, units(3, "100"), warehouse)
		require.NoError(t, err)
		require.NoError(t, f.wf.InspectProducts(inv, lineIDs(lines[:1]), warehouse))

		require.NoError(t, f.wf.InspectWithDefects(inv, lineIDs(lines[1:2]), lineIDs(lines[:2]), warehouse))
		assert.True(t, inv.GetLine(lines[0].ID).Defective)
		assert.True(t, inv.GetLine(lines[1].ID).Defective)
		assert.False(t, inv.GetLine(lines[2].ID).Defective)
	})

	t.Run("invalid defect leaves the batch uninspected", func(t *testing.T) {
		f := newFixture()
		inv := f.create(t, PaymentTermsFullyPrepaid, "300", 3)
		inputs := units(3, "100")
		inputs[2].New = true
		lines, err := f.wf.RegisterProducts(inv, inputs, warehouse)
		require.NoError(t, err)
		before := snapshot(t, inv)

		err = f.wf.InspectWithDefects(inv, lineIDs(lines[:1]), lineIDs(lines[1:2]), warehouse)
		requireCode(t, err, shared.CodeValidation)
		assert.Contains(t, err.Error(), "must be inspected")

		err = f.wf.InspectWithDefects(inv, lineIDs(lines), lineIDs(lines[2:]), warehouse)
		requireCode(t, err, shared.CodeValidation)
		assert.Contains(t, err.Error(), "New category")

		assert.Equal(t, before, snapshot(t, inv))
	})
}
