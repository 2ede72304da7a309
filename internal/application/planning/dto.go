package planning

import (
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest represents a request to create a production order
type CreateOrderRequest struct {
	ProductType string     `json:"product_type" binding:"required,max=100"`
	Quantity    int64      `json:"quantity" binding:"required,min=1"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	Deadline    *time.Time `json:"deadline"`
	Customer    string     `json:"customer" binding:"max=200"`
	Notes       string     `json:"notes"`
	Confirm     bool       `json:"confirm"`
}

// RecalculateRequest changes the quantity of a draft order
type RecalculateRequest struct {
	Quantity int64 `json:"quantity" binding:"required,min=1"`
}

// PreviewRequest asks for a calculation without creating an order
type PreviewRequest struct {
	ProductType string `json:"product_type" form:"product_type" binding:"required"`
	Quantity    int64  `json:"quantity" form:"quantity" binding:"required,min=1"`
}

// CorrectTaskRequest sets a task status directly
type CorrectTaskRequest struct {
	Status string `json:"status" binding:"required"`
}

// ExcludeTaskRequest includes or excludes a task from the order roll-up
type ExcludeTaskRequest struct {
	Excluded bool `json:"excluded"`
}

// SpecItemRequest is one per-unit consumption figure
type SpecItemRequest struct {
	Department string          `json:"department" binding:"required"`
	Name       string          `json:"name" binding:"required,max=200"`
	PerUnit    decimal.Decimal `json:"per_unit"`
	Unit       string          `json:"unit" binding:"required,max=20"`
}

// SaveProductSpecRequest replaces the bill of materials of a product type
type SaveProductSpecRequest struct {
	ProductType string            `json:"product_type" binding:"required,max=100"`
	Name        string            `json:"name" binding:"required,max=200"`
	Items       []SpecItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	Search      string `form:"search"`
	Status      string `form:"status" binding:"omitempty,oneof=draft confirmed in_progress completed cancelled"`
	Priority    string `form:"priority" binding:"omitempty,oneof=low normal high urgent"`
	ProductType string `form:"product_type"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string `form:"order_by"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TaskResponse represents an order task in API responses
type TaskResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderID          uuid.UUID           `json:"order_id"`
	Department       plant.Department    `json:"department"`
	DepartmentTitle  string              `json:"department_title"`
	Description      string              `json:"description"`
	RequiredQuantity decimal.Decimal     `json:"required_quantity"`
	RequiredUnit     string              `json:"required_unit"`
	Status           planning.TaskStatus `json:"status"`
	Excluded         bool                `json:"excluded"`
	StartedAt        *time.Time          `json:"started_at,omitempty"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
}

// OrderResponse represents a production order in API responses
type OrderResponse struct {
	ID              uuid.UUID            `json:"id"`
	Number          string               `json:"number"`
	ProductType     string               `json:"product_type"`
	Quantity        int64                `json:"quantity"`
	Priority        planning.Priority    `json:"priority"`
	Deadline        *time.Time           `json:"deadline,omitempty"`
	Customer        string               `json:"customer,omitempty"`
	Status          planning.OrderStatus `json:"status"`
	AggregateStatus planning.OrderStatus `json:"aggregate_status"`
	Calculation     planning.Calculation `json:"calculation"`
	Notes           string               `json:"notes,omitempty"`
	CreatedBy       uuid.UUID            `json:"created_by"`
	ConfirmedAt     *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
	Tasks           []TaskResponse       `json:"tasks,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	Version         int                  `json:"version"`
}

// OrderListItemResponse is the compact form used in order lists
type OrderListItemResponse struct {
	ID          uuid.UUID            `json:"id"`
	Number      string               `json:"number"`
	ProductType string               `json:"product_type"`
	Quantity    int64                `json:"quantity"`
	Priority    planning.Priority    `json:"priority"`
	Deadline    *time.Time           `json:"deadline,omitempty"`
	Customer    string               `json:"customer,omitempty"`
	Status      planning.OrderStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ProductSpecResponse represents a product spec in API responses
type ProductSpecResponse struct {
	ID          uuid.UUID           `json:"id"`
	ProductType string              `json:"product_type"`
	Name        string              `json:"name"`
	Items       []planning.SpecItem `json:"items"`
}

// ToTaskResponse converts a domain task
func ToTaskResponse(t *planning.OrderTask) TaskResponse {
	return TaskResponse{
		ID:               t.ID,
		OrderID:          t.OrderID,
		Department:       t.Department,
		DepartmentTitle:  t.Department.Title(),
		Description:      t.Description,
		RequiredQuantity: t.RequiredQuantity,
		RequiredUnit:     t.RequiredUnit,
		Status:           t.Status,
		Excluded:         t.Excluded,
		StartedAt:        t.StartedAt,
		CompletedAt:      t.CompletedAt,
	}
}

// ToOrderResponse converts a domain order with its tasks
func ToOrderResponse(o *planning.ProductionOrder) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Number:          o.Number,
		ProductType:     o.ProductType,
		Quantity:        o.Quantity,
		Priority:        o.Priority,
		Deadline:        o.Deadline,
		Customer:        o.Customer,
		Status:          o.Status,
		AggregateStatus: o.AggregateStatus(),
		Calculation:     o.Calculation,
		Notes:           o.Notes,
		CreatedBy:       o.CreatedBy,
		ConfirmedAt:     o.ConfirmedAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		Version:         o.Version,
	}
	for i := range o.Tasks {
		resp.Tasks = append(resp.Tasks, ToTaskResponse(&o.Tasks[i]))
	}
	return resp
}

// ToOrderListItemResponse converts a domain order for list views
func ToOrderListItemResponse(o *planning.ProductionOrder) OrderListItemResponse {
	return OrderListItemResponse{
		ID:          o.ID,
		Number:      o.Number,
		ProductType: o.ProductType,
		Quantity:    o.Quantity,
		Priority:    o.Priority,
		Deadline:    o.Deadline,
		Customer:    o.Customer,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

// ToProductSpecResponse converts a domain product spec
func ToProductSpecResponse(s *planning.ProductSpec) ProductSpecResponse {
	return ProductSpecResponse{
		ID:          s.ID,
		ProductType: s.ProductType,
		Name:        s.Name,
		Items:       s.Items,
	}
}
