package payout

import (
	"context"
	"time"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/dairyops/backend/internal/domain/payout"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutService records farmer collections and settles them into payouts.
// Generation and every status change run in one transaction; status
// changes are conditional writes on (status, version).
type PayoutService struct {
	collectionRepo  payout.CollectionRepository
	payoutRepo      payout.PayoutRepository
	txScope         TransactionScope
	referencePrefix string
	eventPublisher  shared.EventPublisher
	metrics         *telemetry.BusinessMetrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewPayoutService creates a new PayoutService. An empty prefix uses
// payout.DefaultReferencePrefix.
func NewPayoutService(
	collectionRepo payout.CollectionRepository,
	payoutRepo payout.PayoutRepository,
	txScope TransactionScope,
	referencePrefix string,
	logger *zap.Logger,
) *PayoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if referencePrefix == "" {
		referencePrefix = payout.DefaultReferencePrefix
	}
	return &PayoutService{
		collectionRepo:  collectionRepo,
		payoutRepo:      payoutRepo,
		txScope:         txScope,
		referencePrefix: referencePrefix,
		logger:          logger,
		now:             time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PayoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the business metrics recorder
func (s *PayoutService) SetMetrics(metrics *telemetry.BusinessMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *PayoutService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *PayoutService) publishDomainEvents(ctx context.Context, p *payout.Payout) {
	if s.eventPublisher == nil {
		return
	}
	events := shared.CollectEvents(p)
	if len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

// RecordCollection stores a delivery with its accepted/rejected split
func (s *PayoutService) RecordCollection(ctx context.Context, cmd RecordCollectionCommand) (*CollectionResponse, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	date := s.now()
	if cmd.CollectionDate != nil {
		date = *cmd.CollectionDate
	}

	c, err := payout.NewCollection(payout.CollectionInput{
		SupplierID:     cmd.SupplierID,
		CollectionDate: date.UTC(),
		AcceptedLiters: cmd.AcceptedLiters,
		RejectedLiters: cmd.RejectedLiters,
		PricePerLiter:  cmd.PricePerLiter,
		QualityGrade:   cmd.QualityGrade,
		Notes:          cmd.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.collectionRepo.Save(ctx, c); err != nil {
		s.logger.Error("Failed to save collection", zap.String("supplier_id", cmd.SupplierID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Collection recorded",
		zap.String("collection_id", c.ID.String()),
		zap.String("supplier_id", c.SupplierID.String()),
		zap.String("accepted_liters", c.AcceptedLiters.String()),
		zap.String("rejected_liters", c.RejectedLiters.String()))

	resp := ToCollectionResponse(c)
	return &resp, nil
}

// VoidCollection excludes an unsettled collection from future payouts
func (s *PayoutService) VoidCollection(ctx context.Context, id uuid.UUID, cmd VoidCollectionCommand) (*CollectionResponse, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	var c *payout.Collection
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		c, err = repos.CollectionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := c.Void(cmd.Reason); err != nil {
			return err
		}
		return repos.CollectionRepo().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Collection voided", zap.String("collection_id", id.String()), zap.String("reason", c.VoidReason))
	resp := ToCollectionResponse(c)
	return &resp, nil
}

// ListCollections returns every collection of a supplier in a period,
// settled and voided ones included
func (s *PayoutService) ListCollections(ctx context.Context, query ListCollectionsQuery) ([]CollectionResponse, error) {
	if err := validation.Struct(query); err != nil {
		return nil, err
	}
	period, err := parsePeriod(query.From, query.To)
	if err != nil {
		return nil, err
	}
	collections, err := s.collectionRepo.FindBySupplier(ctx, uuid.MustParse(query.SupplierID), period)
	if err != nil {
		return nil, err
	}
	out := make([]CollectionResponse, 0, len(collections))
	for i := range collections {
		out = append(out, ToCollectionResponse(&collections[i]))
	}
	return out, nil
}

// PreviewPayout aggregates the settleable collections of a period without
// writing anything
func (s *PayoutService) PreviewPayout(ctx context.Context, cmd GeneratePayoutCommand) (*PreviewResponse, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	period, err := parsePeriod(cmd.PeriodStart, cmd.PeriodEnd)
	if err != nil {
		return nil, err
	}

	collections, err := s.collectionRepo.FindBySupplier(ctx, cmd.SupplierID, period)
	if err != nil {
		return nil, err
	}
	refs := make([]*payout.Collection, 0, len(collections))
	for i := range collections {
		refs = append(refs, &collections[i])
	}

	totals, err := payout.Aggregate(cmd.SupplierID, period, refs, cmd.TransportDeduction)
	if err != nil {
		return nil, err
	}
	resp := ToPreviewResponse(totals)
	return &resp, nil
}

// GeneratePayout creates a DRAFT payout for a supplier and period and
// marks the aggregated collections as settled by it
func (s *PayoutService) GeneratePayout(ctx context.Context, cmd GeneratePayoutCommand) (_ *PayoutResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PayoutService", "GeneratePayout",
		telemetry.SpanAttrSupplierID, cmd.SupplierID)
	defer telemetry.EndSpan(span, &err)

	if err = validation.Struct(cmd); err != nil {
		return nil, err
	}
	period, err := parsePeriod(cmd.PeriodStart, cmd.PeriodEnd)
	if err != nil {
		return nil, err
	}

	var p *payout.Payout
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		collections, err := repos.CollectionRepo().FindSettleableForUpdate(ctx, cmd.SupplierID, period)
		if err != nil {
			return err
		}
		// Checked after the collection locks: a concurrent generation for the
		// same period holds them until it commits, so its payout is visible here.
		exists, err := repos.PayoutRepo().ExistsForPeriod(ctx, cmd.SupplierID, period)
		if err != nil {
			return err
		}
		if exists {
			return duplicatePeriod(cmd.SupplierID, period)
		}

		totals, err := payout.Aggregate(cmd.SupplierID, period, collections, cmd.TransportDeduction)
		if err != nil {
			return err
		}

		day := s.now().UTC()
		seq, err := repos.ReferenceRepo().Next(ctx, s.referencePrefix, day)
		if err != nil {
			return err
		}
		p, err = payout.NewPayout(payout.FormatReference(s.referencePrefix, day, seq), totals)
		if err != nil {
			return err
		}
		if err := repos.PayoutRepo().Create(ctx, p); err != nil {
			return err
		}
		return repos.CollectionRepo().AssignToPayout(ctx, totals.CollectionIDs, p.ID)
	})
	if err != nil {
		if de, ok := shared.AsDomainError(err); ok {
			s.logger.Warn("Payout generation rejected",
				zap.String("supplier_id", cmd.SupplierID.String()),
				zap.String("period_start", cmd.PeriodStart),
				zap.String("period_end", cmd.PeriodEnd),
				zap.String("reason", de.Code))
		} else {
			s.logger.Error("Payout generation failed", zap.String("supplier_id", cmd.SupplierID.String()), zap.Error(err))
		}
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPayoutID, p.ID)
	s.metrics.RecordPayoutGenerated(ctx, p.NetAmount)
	s.publishDomainEvents(ctx, p)

	s.logger.Info("Payout generated",
		zap.String("payout_id", p.ID.String()),
		zap.String("reference", p.Reference),
		zap.Int("collections", p.CollectionCount),
		zap.String("net_amount", p.NetAmount.String()))

	resp := ToPayoutResponse(p)
	return &resp, nil
}

func duplicatePeriod(supplierID uuid.UUID, period payout.Period) error {
	return shared.ErrDuplicatePayoutPeriod.WithDetails(map[string]any{
		"supplier_id":  supplierID.String(),
		"period_start": period.Start.Format(DateLayout),
		"period_end":   period.End.Format(DateLayout),
	})
}

// Approve transitions a DRAFT payout to APPROVED
func (s *PayoutService) Approve(ctx context.Context, id uuid.UUID) (*PayoutResponse, error) {
	return s.transition(ctx, id, "Approve", func(p *payout.Payout, at time.Time) error {
		return p.Approve(at)
	})
}

// MarkPaid transitions an APPROVED payout to PAID
func (s *PayoutService) MarkPaid(ctx context.Context, id uuid.UUID, cmd MarkPaidCommand) (*PayoutResponse, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, "MarkPaid", func(p *payout.Payout, at time.Time) error {
		return p.MarkPaid(at, cmd.PaymentReference)
	})
}

// transition applies a status change and writes it guarded by the status
// and version it was loaded with
func (s *PayoutService) transition(
	ctx context.Context,
	id uuid.UUID,
	method string,
	apply func(p *payout.Payout, at time.Time) error,
) (_ *PayoutResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PayoutService", method, telemetry.SpanAttrPayoutID, id)
	defer telemetry.EndSpan(span, &err)

	var p *payout.Payout
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		p, err = repos.PayoutRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		from := p.Status
		if err := apply(p, s.now().UTC()); err != nil {
			return err
		}
		return repos.PayoutRepo().UpdateStatus(ctx, p, from)
	})
	if err != nil {
		s.logger.Warn("Payout transition rejected",
			zap.String("payout_id", id.String()),
			zap.String("action", method),
			zap.Error(err))
		return nil, err
	}

	s.publishDomainEvents(ctx, p)
	s.logger.Info("Payout status changed",
		zap.String("payout_id", p.ID.String()),
		zap.String("reference", p.Reference),
		zap.String("status", p.Status.String()))

	resp := ToPayoutResponse(p)
	return &resp, nil
}

// Delete removes a DRAFT payout and releases its collections
func (s *PayoutService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PayoutService", "Delete", telemetry.SpanAttrPayoutID, id)
	defer telemetry.EndSpan(span, &err)

	var p *payout.Payout
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		p, err = repos.PayoutRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.MarkDeleted(); err != nil {
			return err
		}
		if err := repos.PayoutRepo().DeleteDraft(ctx, id); err != nil {
			return err
		}
		return repos.CollectionRepo().ReleaseFromPayout(ctx, id)
	})
	if err != nil {
		s.logger.Warn("Payout deletion rejected", zap.String("payout_id", id.String()), zap.Error(err))
		return err
	}

	s.publishDomainEvents(ctx, p)
	s.logger.Info("Payout deleted", zap.String("payout_id", id.String()), zap.String("reference", p.Reference))
	return nil
}

// Get returns a payout by ID
func (s *PayoutService) Get(ctx context.Context, id uuid.UUID) (*PayoutResponse, error) {
	p, err := s.payoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPayoutResponse(p)
	return &resp, nil
}

// List returns a page of payouts and the total count
func (s *PayoutService) List(ctx context.Context, query ListPayoutsQuery) ([]PayoutResponse, int64, error) {
	if err := validation.Struct(query); err != nil {
		return nil, 0, err
	}
	payouts, total, err := s.payoutRepo.FindAll(ctx, query.ToFilter())
	if err != nil {
		return nil, 0, err
	}
	out := make([]PayoutResponse, 0, len(payouts))
	for i := range payouts {
		out = append(out, ToPayoutResponse(&payouts[i]))
	}
	return out, total, nil
}
