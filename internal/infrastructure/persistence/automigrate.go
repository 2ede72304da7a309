package persistence

import (
	"fmt"

	"github.com/fibc/backend/internal/domain/ledger"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/production"
	"gorm.io/gorm"
)

// Models lists every table the repositories read and write, parents first
func Models() []interface{} {
	return []interface{}{
		&ledger.Material{},
		&production.Machine{},
		&production.ProductionShift{},
		&planning.ProductSpec{},
		&planning.SpecItem{},
		&planning.ProductionOrder{},
		&planning.OrderTask{},
		&production.MaterialUnit{},
		&production.TransferRecord{},
		&ledger.Movement{},
		&production.ConsumptionRecord{},
		&DocumentSequence{},
	}
}

// partialIndexes cannot be expressed in struct tags
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_material_units_active_machine ON material_units (machine_id) WHERE status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_production_shifts_open_machine ON production_shifts (machine_id) WHERE closed_at IS NULL`,
}

const balancesView = `CREATE OR REPLACE VIEW material_balances AS
SELECT m.id AS material_id, m.code, m.name, m.class, m.unit,
	COALESCE(SUM(CASE WHEN lm.direction = 'in' THEN lm.quantity ELSE 0 END), 0) AS total_in,
	COALESCE(SUM(CASE WHEN lm.direction = 'out' THEN lm.quantity ELSE 0 END), 0) AS total_out,
	COALESCE(SUM(CASE WHEN lm.direction = 'in' THEN lm.quantity ELSE -lm.quantity END), 0) AS balance
FROM materials m
LEFT JOIN ledger_movements lm ON lm.material_id = m.id
GROUP BY m.id, m.code, m.name, m.class, m.unit`

// AutoMigrate creates the schema from the entity definitions. It backs local
// SQLite runs and tests; Postgres deployments use the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(balancesView).Error; err != nil {
			return fmt.Errorf("create balance view: %w", err)
		}
	}
	return nil
}
