package persistence

import (
	"strings"

	"github.com/fibc/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes a client sort direction. Anything but "asc"
// (any case, any padding) sorts newest first.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if the whitelist allows it and
// defaultField otherwise. The result is interpolated into ORDER BY, so the
// whitelist is the only guard against injection.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	if f := strings.TrimSpace(sortField); allowedFields[f] {
		return f
	}
	return defaultField
}

// sortAndPage orders by a whitelisted field and applies pagination.
// A zero PageSize returns every row.
func sortAndPage(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	if field := ValidateSortField(filter.OrderBy, allowed, defaultField); field != "" {
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

// entitySortFields whitelists the base entity columns plus cols.
func entitySortFields(cols ...string) map[string]bool {
	m := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, c := range cols {
		m[c] = true
	}
	return m
}

var (
	MaterialSortFields = entitySortFields("code", "name", "class")
	MovementSortFields = entitySortFields("occurred_at", "document_number", "direction", "kind", "quantity")
	MachineSortFields  = entitySortFields("code", "name", "department")
	UnitSortFields     = entitySortFields("number", "kind", "status", "location", "started_at", "completed_at", "quantity")
	ShiftSortFields    = entitySortFields("number", "department", "shift_date", "opened_at", "closed_at")
	OrderSortFields    = entitySortFields("number", "product_type", "quantity", "priority", "deadline", "status")
	TaskSortFields     = entitySortFields("status", "department", "started_at", "completed_at")
)

// BalanceSortFields applies to the aggregated balance view, which has no entity columns.
var BalanceSortFields = map[string]bool{
	"code":      true,
	"name":      true,
	"class":     true,
	"total_in":  true,
	"total_out": true,
	"balance":   true,
}
