package payout

import (
	"testing"
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func newCollection(t *testing.T, supplierID uuid.UUID, date time.Time, accepted, rejected, price float64) *Collection {
	t.Helper()
	c, err := NewCollection(CollectionInput{
		SupplierID:     supplierID,
		CollectionDate: date,
		AcceptedLiters: d(accepted),
		RejectedLiters: d(rejected),
		PricePerLiter:  d(price),
	})
	require.NoError(t, err)
	return c
}

func newDraftPayout(t *testing.T) *Payout {
	t.Helper()
	supplierID := uuid.New()
	period, err := NewPeriod(day(2026, 3, 1), day(2026, 3, 15))
	require.NoError(t, err)
	totals, err := Aggregate(supplierID, period, []*Collection{
		newCollection(t, supplierID, day(2026, 3, 2).Add(6*time.Hour), 100, 5, 0.5),
	}, decimal.Zero)
	require.NoError(t, err)
	p, err := NewPayout(FormatReference("PAY", day(2026, 3, 16), 1), totals)
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func TestPayout_StateMachine(t *testing.T) {
	at := day(2026, 3, 20)

	t.Run("draft to approved to paid", func(t *testing.T) {
		p := newDraftPayout(t)
		assert.Equal(t, PayoutStatusDraft, p.Status)

		require.NoError(t, p.Approve(at))
		assert.Equal(t, PayoutStatusApproved, p.Status)
		require.NoError(t, p.MarkPaid(at.Add(time.Hour), "BANK-991"))
		assert.Equal(t, PayoutStatusPaid, p.Status)
		assert.Equal(t, "BANK-991", p.PaymentReference)

		events := p.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypePayoutApproved, events[0].EventType())
		assert.Equal(t, EventTypePayoutPaid, events[1].EventType())
	})

	t.Run("draft cannot skip to paid", func(t *testing.T) {
		p := newDraftPayout(t)
		err := p.MarkPaid(at, "")
		assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		assert.Equal(t, PayoutStatusDraft, p.Status)
	})

	t.Run("approved cannot be deleted or approved again", func(t *testing.T) {
		p := newDraftPayout(t)
		require.NoError(t, p.Approve(at))
		assert.ErrorIs(t, p.MarkDeleted(), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, p.Approve(at), shared.ErrInvalidStateTransition)
	})

	t.Run("paid is immutable", func(t *testing.T) {
		p := newDraftPayout(t)
		require.NoError(t, p.Approve(at))
		require.NoError(t, p.MarkPaid(at, ""))
		assert.ErrorIs(t, p.Approve(at), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, p.MarkPaid(at, ""), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, p.MarkDeleted(), shared.ErrInvalidStateTransition)
	})

	t.Run("draft can be deleted", func(t *testing.T) {
		p := newDraftPayout(t)
		require.NoError(t, p.MarkDeleted())
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, EventTypePayoutDeleted, p.GetDomainEvents()[0].EventType())
	})
}

func TestNewPayout(t *testing.T) {
	p := newDraftPayout(t)
	assert.Equal(t, "PAY-20260316-0001", p.Reference)
	assert.Equal(t, 1, p.CollectionCount)
	assert.Equal(t, "50", p.NetAmount.String())

	_, err := NewPayout("", &Totals{AcceptedLiters: d(1)})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
	_, err = NewPayout("PAY-1", &Totals{AcceptedLiters: decimal.Zero})
	assert.ErrorIs(t, err, shared.ErrNoAcceptedVolume)
}

func TestFormatReference(t *testing.T) {
	assert.Equal(t, "PAY-20261017-0007", FormatReference("", day(2026, 10, 17), 7))
	assert.Equal(t, "FP-20261017-0123", FormatReference(" fp ", day(2026, 10, 17), 123))
	assert.Equal(t, "PAY-20261017-12345", FormatReference("PAY", day(2026, 10, 17), 12345))
}
