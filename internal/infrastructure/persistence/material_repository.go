package persistence

import (
	"context"
	"strings"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMaterialRepository implements MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

func (r *GormMaterialRepository) first(query *gorm.DB) (*inventory.Material, error) {
	var m inventory.Material
	if err := query.First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, shared.ErrMaterialNotFound
		}
		return nil, err
	}
	m.MarkPersisted()
	return &m, nil
}

// FindByID finds a material by its ID
func (r *GormMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Material, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a material and locks the row
func (r *GormMaterialRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Material, error) {
	return r.first(r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id))
}

// FindByCode finds a material by its catalog code
func (r *GormMaterialRepository) FindByCode(ctx context.Context, code string) (*inventory.Material, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))))
}

// FindAll lists materials. Search matches code or name; the "category"
// filter narrows to one category.
func (r *GormMaterialRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Material, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Material{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if category, ok := filter.Filters["category"].(string); ok && category != "" {
		query = query.Where("category = ?", category)
	}
	query = applyPage(query, filter, MaterialSortFields, "code")

	var materials []inventory.Material
	if err := query.Find(&materials).Error; err != nil {
		return nil, err
	}
	for i := range materials {
		materials[i].MarkPersisted()
	}
	return materials, nil
}

// FindByIDs returns the materials with the given ids, ordered by code
func (r *GormMaterialRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.Material, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var materials []inventory.Material
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("code").Find(&materials).Error; err != nil {
		return nil, err
	}
	for i := range materials {
		materials[i].MarkPersisted()
	}
	return materials, nil
}

// Save creates or updates a material
func (r *GormMaterialRepository) Save(ctx context.Context, m *inventory.Material) error {
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainErrorf(shared.CodeValidationFailed, "Material code %s already exists", m.Code)
		}
		return err
	}
	m.MarkPersisted()
	return nil
}

// SaveWithLock writes the material only if the stored version is the one
// that was loaded
func (r *GormMaterialRepository) SaveWithLock(ctx context.Context, m *inventory.Material) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Material{}).
		Where("id = ? AND version = ?", m.ID, m.PersistedVersion()).
		Updates(map[string]any{
			"name":                    m.Name,
			"unit":                    m.Unit,
			"category":                m.Category,
			"on_hand_quantity":        m.OnHandQuantity,
			"reorder_level":           m.ReorderLevel,
			"max_level":               m.MaxLevel,
			"standard_order_quantity": m.StandardOrderQuantity,
			"standard_cost":           m.StandardCost,
			"perishable":              m.Perishable,
			"version":                 m.Version,
			"updated_at":              m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetails(map[string]any{"material_id": m.ID.String()})
	}
	m.MarkPersisted()
	return nil
}

var _ inventory.MaterialRepository = (*GormMaterialRepository)(nil)
