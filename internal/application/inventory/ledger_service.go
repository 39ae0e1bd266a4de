package inventory

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"slices"
	"time"

	"github.com/dairyops/backend/internal/application/validation"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/dairyops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMovementLimit caps a movement history read
const DefaultMovementLimit = 100

// LedgerService owns the batch ledger: materials, receipts, FIFO
// consumption and the expiry sweep. Every quantity change runs in one
// transaction together with its movement rows.
type LedgerService struct {
	materialRepo   inventory.MaterialRepository
	batchRepo      inventory.BatchRepository
	movementRepo   inventory.MovementRepository
	txScope        TransactionScope
	classifier     *inventory.FreshnessClassifier
	eventPublisher shared.EventPublisher
	metrics        *telemetry.BusinessMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	materialRepo inventory.MaterialRepository,
	batchRepo inventory.BatchRepository,
	movementRepo inventory.MovementRepository,
	txScope TransactionScope,
	classifier *inventory.FreshnessClassifier,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		materialRepo: materialRepo,
		batchRepo:    batchRepo,
		movementRepo: movementRepo,
		txScope:      txScope,
		classifier:   classifier,
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the business metrics recorder
func (s *LedgerService) SetMetrics(metrics *telemetry.BusinessMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// publishDomainEvents publishes events drained after a committed transaction
func (s *LedgerService) publishDomainEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

// RegisterMaterial creates a material or updates the one with the same code
func (s *LedgerService) RegisterMaterial(ctx context.Context, cmd RegisterMaterialCommand) (*MaterialResponse, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	m, err := s.materialRepo.FindByCode(ctx, cmd.Code)
	created := false
	switch {
	case errors.Is(err, shared.ErrMaterialNotFound):
		m, err = inventory.NewMaterial(cmd.Code, cmd.Name, cmd.Unit, cmd.Category)
		if err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		s.logger.Error("Failed to look up material", zap.String("code", cmd.Code), zap.Error(err))
		return nil, err
	default:
		if err := m.Rename(cmd.Name, cmd.Unit, cmd.Category); err != nil {
			return nil, err
		}
		m.IncrementVersion()
	}

	if err := m.SetStockPolicy(cmd.ReorderLevel, cmd.MaxLevel, cmd.StandardOrderQuantity); err != nil {
		return nil, err
	}
	if err := m.SetStandardCost(cmd.StandardCost); err != nil {
		return nil, err
	}
	if cmd.Perishable != nil {
		m.Perishable = *cmd.Perishable
	}

	if created {
		err = s.materialRepo.Save(ctx, m)
	} else {
		err = s.materialRepo.SaveWithLock(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Material registered",
		zap.String("material_id", m.ID.String()),
		zap.String("code", m.Code),
		zap.Bool("created", created))

	resp := ToMaterialResponse(m)
	return &resp, nil
}

// GetMaterial returns a material by id
func (s *LedgerService) GetMaterial(ctx context.Context, id uuid.UUID) (*MaterialResponse, error) {
	m, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToMaterialResponse(m)
	return &resp, nil
}

// ListMaterials returns materials matching the query
func (s *LedgerService) ListMaterials(ctx context.Context, query ListMaterialsQuery) ([]MaterialResponse, error) {
	if err := validation.Struct(query); err != nil {
		return nil, err
	}
	materials, err := s.materialRepo.FindAll(ctx, query.ToFilter())
	if err != nil {
		return nil, err
	}
	out := make([]MaterialResponse, 0, len(materials))
	for i := range materials {
		out = append(out, ToMaterialResponse(&materials[i]))
	}
	return out, nil
}

// ReceiveBatch records a delivery. The batch, the material's on-hand total
// and the RECEIPT movement are written in one transaction.
func (s *LedgerService) ReceiveBatch(ctx context.Context, cmd ReceiveBatchCommand) (_ *BatchResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "ReceiveBatch",
		telemetry.SpanAttrMaterialID, cmd.MaterialID,
		telemetry.SpanAttrQuantity, cmd.Quantity.String())
	defer telemetry.EndSpan(span, &err)

	if err = validation.Struct(cmd); err != nil {
		return nil, err
	}

	receivedAt := s.now()
	if cmd.ReceivedAt != nil {
		receivedAt = *cmd.ReceivedAt
	}

	var (
		batch    *inventory.Batch
		material *inventory.Material
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MaterialRepo().FindByIDForUpdate(ctx, cmd.MaterialID)
		if err != nil {
			return err
		}
		b, err := inventory.NewBatch(inventory.BatchReceipt{
			MaterialID:   m.ID,
			SupplierID:   cmd.SupplierID,
			BatchNumber:  cmd.BatchNumber,
			Quantity:     cmd.Quantity,
			UnitCost:     cmd.UnitCost,
			ReceivedAt:   receivedAt,
			ExpiryAt:     cmd.ExpiryAt,
			QualityGrade: cmd.QualityGrade,
		})
		if err != nil {
			return err
		}
		if err := repos.BatchRepo().Save(ctx, b); err != nil {
			return err
		}
		if err := m.AddOnHand(b.ReceivedQuantity); err != nil {
			return err
		}
		if err := repos.MaterialRepo().SaveWithLock(ctx, m); err != nil {
			return err
		}
		movement := inventory.NewStockMovement(b, inventory.MovementTypeReceipt, b.ReceivedQuantity, b.BatchNumber, b.ReceivedAt)
		if err := repos.MovementRepo().Append(ctx, movement); err != nil {
			return err
		}
		batch, material = b, m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBatchReceived(ctx, material.Code)
	s.publishDomainEvents(ctx, shared.CollectEvents(batch, material))

	s.logger.Info("Batch received",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("material_code", material.Code),
		zap.String("quantity", batch.ReceivedQuantity.String()),
		zap.String("on_hand", material.OnHandQuantity.String()))

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// ApproveBatch moves a RECEIVED batch to APPROVED
func (s *LedgerService) ApproveBatch(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	var batch *inventory.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if err := b.Approve(s.now()); err != nil {
			return err
		}
		if err := repos.BatchRepo().SaveAll(ctx, []*inventory.Batch{b}); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, shared.CollectEvents(batch))
	s.logger.Info("Batch approved", zap.String("batch_id", batch.ID.String()))

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// Consume draws quantity from the material's batches oldest first. The
// material row is locked before its batch rows so concurrent consumers of
// one material serialize; a request larger than the available stock
// changes nothing.
func (s *LedgerService) Consume(ctx context.Context, cmd ConsumeCommand) (_ *ConsumptionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "Consume",
		telemetry.SpanAttrMaterialID, cmd.MaterialID,
		telemetry.SpanAttrQuantity, cmd.Quantity.String())
	defer telemetry.EndSpan(span, &err)

	if err = validation.Struct(cmd); err != nil {
		return nil, err
	}
	if !cmd.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if !shared.FitsStoredScale(cmd.Quantity) {
		return nil, shared.ErrQuantityScale
	}

	var (
		material *inventory.Material
		plan     *inventory.ConsumptionPlan
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MaterialRepo().FindByIDForUpdate(ctx, cmd.MaterialID)
		if err != nil {
			return err
		}
		material = m

		batches, err := repos.BatchRepo().FindAvailableForUpdate(ctx, m.ID)
		if err != nil {
			return err
		}
		p, err := inventory.PlanConsumption(m.ID, batches, cmd.Quantity)
		if err != nil {
			return err
		}
		touched, err := p.ApplyTo(batches)
		if err != nil {
			return err
		}
		if err := repos.BatchRepo().SaveAll(ctx, touched); err != nil {
			return err
		}
		if err := m.RecordConsumption(p, cmd.Reference); err != nil {
			return err
		}
		if err := repos.MaterialRepo().SaveWithLock(ctx, m); err != nil {
			return err
		}

		at := s.now()
		movements := make([]*inventory.StockMovement, 0, len(touched))
		for i, b := range touched {
			movements = append(movements,
				inventory.NewStockMovement(b, inventory.MovementTypeConsumption, p.Allocations[i].Quantity, cmd.Reference, at))
		}
		if err := repos.MovementRepo().Append(ctx, movements...); err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		s.rejectConsumption(ctx, cmd, material, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrAllocations, len(plan.Allocations))
	s.metrics.RecordConsumption(ctx, material.Code, plan.Requested)
	s.publishDomainEvents(ctx, shared.CollectEvents(material))

	s.logger.Info("Stock consumed",
		zap.String("material_code", material.Code),
		zap.String("quantity", plan.Requested.String()),
		zap.String("total_cost", plan.TotalCost.String()),
		zap.Int("allocations", len(plan.Allocations)),
		zap.String("on_hand", material.OnHandQuantity.String()))

	return &ConsumptionResult{
		MaterialID:  material.ID,
		Quantity:    plan.Requested,
		TotalCost:   plan.TotalCost,
		Allocations: plan.Allocations,
		OnHandAfter: material.OnHandQuantity,
		Reference:   cmd.Reference,
	}, nil
}

func (s *LedgerService) rejectConsumption(ctx context.Context, cmd ConsumeCommand, m *inventory.Material, err error) {
	de, ok := shared.AsDomainError(err)
	if !ok {
		s.logger.Error("Consumption failed",
			zap.String("material_id", cmd.MaterialID.String()),
			zap.Error(err))
		return
	}
	code := ""
	if m != nil {
		code = m.Code
	}
	s.metrics.RecordConsumptionRejected(ctx, code, de.Code)
	s.logger.Warn("Consumption rejected",
		zap.String("material_id", cmd.MaterialID.String()),
		zap.String("quantity", cmd.Quantity.String()),
		zap.String("reason", de.Code),
		zap.Any("details", de.Details))
}

// AvailableBatches streams the consumable batches of a material in FIFO
// order. Ranging over the sequence again re-reads the ledger.
func (s *LedgerService) AvailableBatches(ctx context.Context, materialID uuid.UUID) iter.Seq2[*inventory.Batch, error] {
	return s.batchRepo.IterateAvailable(ctx, materialID)
}

// ListAvailableBatches collects AvailableBatches for a material
func (s *LedgerService) ListAvailableBatches(ctx context.Context, materialID uuid.UUID) ([]BatchResponse, error) {
	if _, err := s.materialRepo.FindByID(ctx, materialID); err != nil {
		return nil, err
	}
	out := make([]BatchResponse, 0)
	for b, err := range s.AvailableBatches(ctx, materialID) {
		if err != nil {
			return nil, err
		}
		out = append(out, ToBatchResponse(b))
	}
	return out, nil
}

// GetBatch returns a batch by id
func (s *LedgerService) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	b, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(b)
	return &resp, nil
}

// ListMovements returns the newest ledger rows of a material
func (s *LedgerService) ListMovements(ctx context.Context, materialID uuid.UUID, limit int) ([]MovementResponse, error) {
	if limit <= 0 || limit > DefaultMovementLimit {
		limit = DefaultMovementLimit
	}
	movements, err := s.movementRepo.FindByMaterial(ctx, materialID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		out = append(out, ToMovementResponse(&movements[i]))
	}
	return out, nil
}

// SweepExpired persists EXPIRED for every active batch the classifier
// reports expired at now, writes the EXPIRY movements and removes the
// written-off stock from on-hand, all in one transaction.
//
// Candidates are read without locks; each affected material is then locked
// in id order, followed by its batches, the same order consumption uses.
func (s *LedgerService) SweepExpired(ctx context.Context, now time.Time) (_ *SweepResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "SweepExpired")
	defer telemetry.EndSpan(span, &err)

	if now.IsZero() {
		now = s.now()
	}
	result := &SweepResult{SweptAt: now, ExpiredBatchIDs: []uuid.UUID{}, WriteOffs: []WriteOff{}}

	var aggregates []shared.AggregateRoot
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		candidates, err := repos.BatchRepo().FindActive(ctx, now)
		if err != nil {
			return err
		}
		var due []uuid.UUID
		for _, b := range candidates {
			if s.classifier.Classify(b, now) == inventory.FreshnessExpired && !slices.Contains(due, b.MaterialID) {
				due = append(due, b.MaterialID)
			}
		}
		slices.SortFunc(due, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

		for _, materialID := range due {
			expired, m, err := s.expireMaterial(ctx, repos, materialID, now, result)
			if err != nil {
				return err
			}
			if len(expired) == 0 {
				continue
			}
			for _, b := range expired {
				aggregates = append(aggregates, b)
			}
			aggregates = append(aggregates, m)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordBatchesExpired(ctx, len(result.ExpiredBatchIDs))
	s.publishDomainEvents(ctx, shared.CollectEvents(aggregates...))

	if len(result.ExpiredBatchIDs) > 0 {
		s.logger.Info("Expiry sweep completed",
			zap.Time("now", now),
			zap.Int("expired_batches", len(result.ExpiredBatchIDs)))
	}
	return result, nil
}

// expireMaterial reclassifies one material's batches under lock
func (s *LedgerService) expireMaterial(
	ctx context.Context,
	repos TransactionalRepositories,
	materialID uuid.UUID,
	now time.Time,
	result *SweepResult,
) ([]*inventory.Batch, *inventory.Material, error) {
	m, err := repos.MaterialRepo().FindByIDForUpdate(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	batches, err := repos.BatchRepo().FindAvailableForUpdate(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}

	var (
		expired    []*inventory.Batch
		movements  []*inventory.StockMovement
		writtenOff = decimal.Zero
	)
	for _, b := range batches {
		if s.classifier.Classify(b, now) != inventory.FreshnessExpired {
			continue
		}
		qty, err := b.MarkExpired(now)
		if err != nil {
			return nil, nil, err
		}
		expired = append(expired, b)
		writtenOff = writtenOff.Add(qty)
		movements = append(movements, inventory.NewStockMovement(b, inventory.MovementTypeExpiry, qty, b.BatchNumber, now))
		result.ExpiredBatchIDs = append(result.ExpiredBatchIDs, b.ID)
		result.WriteOffs = append(result.WriteOffs, WriteOff{
			BatchID:    b.ID,
			MaterialID: b.MaterialID,
			Quantity:   qty,
			Value:      qty.Mul(b.UnitCost).Round(4),
		})
	}
	if len(expired) == 0 {
		return nil, m, nil
	}

	if err := repos.BatchRepo().SaveAll(ctx, expired); err != nil {
		return nil, nil, err
	}

	removal := decimal.Min(writtenOff, m.OnHandQuantity)
	if !removal.Equal(writtenOff) {
		s.logger.Warn("On-hand total below batch remainder during expiry",
			zap.String("material_code", m.Code),
			zap.String("on_hand", m.OnHandQuantity.String()),
			zap.String("written_off", writtenOff.String()))
	}
	if err := m.RemoveOnHand(removal); err != nil {
		return nil, nil, err
	}
	if err := repos.MaterialRepo().SaveWithLock(ctx, m); err != nil {
		return nil, nil, err
	}
	if err := repos.MovementRepo().Append(ctx, movements...); err != nil {
		return nil, nil, err
	}
	return expired, m, nil
}

// BatchFreshness reports each active batch of a material with its
// freshness at now and its effective expiry
func (s *LedgerService) BatchFreshness(ctx context.Context, materialID uuid.UUID, now time.Time) ([]BatchFreshnessResponse, error) {
	if _, err := s.materialRepo.FindByID(ctx, materialID); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = s.now()
	}

	out := make([]BatchFreshnessResponse, 0)
	for b, err := range s.AvailableBatches(ctx, materialID) {
		if err != nil {
			return nil, err
		}
		regime := RegimeAge
		if b.ExpiryAt != nil {
			regime = RegimeExpiryDate
		}
		out = append(out, BatchFreshnessResponse{
			BatchID:           b.ID,
			BatchNumber:       b.BatchNumber,
			Status:            b.Status.String(),
			RemainingQuantity: b.RemainingQuantity,
			ReceivedAt:        b.ReceivedAt,
			ExpiryAt:          b.ExpiryAt,
			EffectiveExpiry:   s.classifier.EffectiveExpiry(b),
			Regime:            regime,
			Freshness:         string(s.classifier.Classify(b, now)),
		})
	}
	return out, nil
}
