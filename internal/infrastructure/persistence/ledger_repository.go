package persistence

import (
	"context"
	"strings"

	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/production"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormMaterialRepository implements ledger.MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

// FindByID finds a material by its ID
func (r *GormMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Material, error) {
	var material ledger.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "material")
	}
	return &material, nil
}

// FindByCode finds a material by its code
func (r *GormMaterialRepository) FindByCode(ctx context.Context, code string) (*ledger.Material, error) {
	var material ledger.Material
	if err := r.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&material).Error; err != nil {
		return nil, translateError(err, "material")
	}
	return &material, nil
}

// FindAll finds materials; supports the "class" filter
func (r *GormMaterialRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Material, error) {
	var materials []ledger.Material
	query := r.db.WithContext(ctx).Model(&ledger.Material{})
	if class, ok := filter.Filters["class"]; ok {
		query = query.Where("class = ?", class)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("code LIKE ? OR name LIKE ?", pattern, pattern)
	}
	query = sortAndPage(query, filter, MaterialSortFields, "code")
	if err := query.Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

// Save creates or updates a material
func (r *GormMaterialRepository) Save(ctx context.Context, material *ledger.Material) error {
	return translateError(r.db.WithContext(ctx).Save(material).Error, "material")
}

// GormMovementRepository implements ledger.MovementRepository using GORM.
// Movements are append-only; balances are always aggregated from them.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Movement, error) {
	var movement ledger.Movement
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "ledger movement")
	}
	return &movement, nil
}

// FindByMaterial lists the movements of a material, newest first by default
func (r *GormMovementRepository) FindByMaterial(ctx context.Context, materialID uuid.UUID, filter shared.Filter) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	query := r.db.WithContext(ctx).Model(&ledger.Movement{}).Where("material_id = ?", materialID)
	if dir, ok := filter.Filters["direction"]; ok {
		query = query.Where("direction = ?", dir)
	}
	if kind, ok := filter.Filters["kind"]; ok {
		query = query.Where("kind = ?", kind)
	}
	if filter.OrderBy == "" || filter.OrderBy == "created_at" {
		filter.OrderBy = "occurred_at"
	}
	query = sortAndPage(query, filter, MovementSortFields, "occurred_at")
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByDocument lists the movements recorded under a document number
func (r *GormMovementRepository) FindByDocument(ctx context.Context, documentNumber string) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	if err := r.db.WithContext(ctx).
		Where("document_number = ?", documentNumber).
		Order("occurred_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Append inserts a movement. A document number already recorded for the
// same material and direction yields shared.ErrDuplicateDocument.
func (r *GormMovementRepository) Append(ctx context.Context, movement *ledger.Movement) error {
	return translateError(r.db.WithContext(ctx).Create(movement).Error, "ledger movement")
}

// Delete removes a movement
func (r *GormMovementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&ledger.Movement{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "ledger movement")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// balanceRow is one aggregated row of the balance query
type balanceRow struct {
	MaterialID uuid.UUID
	Code       string
	Name       string
	Class      ledger.MaterialClass
	Unit       string
	TotalIn    decimal.Decimal
	TotalOut   decimal.Decimal
}

func (b balanceRow) toBalance() ledger.Balance {
	return ledger.Balance{
		MaterialID: b.MaterialID,
		Code:       b.Code,
		Name:       b.Name,
		Class:      b.Class,
		Unit:       b.Unit,
		TotalIn:    b.TotalIn,
		TotalOut:   b.TotalOut,
		Balance:    b.TotalIn.Sub(b.TotalOut),
	}
}

const balanceSelect = `m.id AS material_id, m.code, m.name, m.class, m.unit,
	COALESCE(SUM(CASE WHEN lm.direction = 'in' THEN lm.quantity ELSE 0 END), 0) AS total_in,
	COALESCE(SUM(CASE WHEN lm.direction = 'out' THEN lm.quantity ELSE 0 END), 0) AS total_out`

// balanceQuery reads the material_balances view on Postgres and runs the
// same aggregate inline elsewhere.
func (r *GormMovementRepository) balanceQuery(ctx context.Context) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return r.db.WithContext(ctx).
			Table("material_balances AS m").
			Select("m.material_id, m.code, m.name, m.class, m.unit, m.total_in, m.total_out")
	}
	return r.db.WithContext(ctx).
		Table("materials AS m").
		Select(balanceSelect).
		Joins("LEFT JOIN ledger_movements AS lm ON lm.material_id = m.id").
		Group("m.id, m.code, m.name, m.class, m.unit")
}

func (r *GormMovementRepository) materialColumn() string {
	if r.db.Dialector.Name() == "postgres" {
		return "m.material_id"
	}
	return "m.id"
}

// Balance aggregates the movements of one material
func (r *GormMovementRepository) Balance(ctx context.Context, materialID uuid.UUID) (*ledger.Balance, error) {
	var rows []balanceRow
	if err := r.balanceQuery(ctx).Where(r.materialColumn()+" = ?", materialID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	b := rows[0].toBalance()
	return &b, nil
}

// Balances aggregates movements of every material; supports the "class" filter
func (r *GormMovementRepository) Balances(ctx context.Context, filter shared.Filter) ([]ledger.Balance, error) {
	var rows []balanceRow
	query := r.balanceQuery(ctx)
	if class, ok := filter.Filters["class"]; ok {
		query = query.Where("m.class = ?", class)
	}
	if err := query.Order("m.code ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.Balance, len(rows))
	for i := range rows {
		out[i] = rows[i].toBalance()
	}
	return out, nil
}

// CountByUnit counts movements posted for a material unit
func (r *GormMovementRepository) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ledger.Movement{}).Where("unit_id = ?", unitID).Count(&n).Error
	return n, err
}

// CountConsumptionsByMovement counts consumption records backed by a movement
func (r *GormMovementRepository) CountConsumptionsByMovement(ctx context.Context, movementID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&production.ConsumptionRecord{}).Where("movement_id = ?", movementID).Count(&n).Error
	return n, err
}

var (
	_ ledger.MaterialRepository = (*GormMaterialRepository)(nil)
	_ ledger.MovementRepository = (*GormMovementRepository)(nil)
	_ ledger.ReferenceCounter   = (*GormMovementRepository)(nil)
)
