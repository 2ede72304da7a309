package planning

import (
	"strings"
	"time"

	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderStatus is the status of a production order
type OrderStatus string

const (
	OrderDraft      OrderStatus = "draft"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// IsValid returns true if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderDraft, OrderConfirmed, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Priority of a production order
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid returns true if the priority is known
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ProductionOrder is a customer order for a quantity of one product type
type ProductionOrder struct {
	shared.BaseAggregateRoot
	Number      string      `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProductType string      `gorm:"type:varchar(100);not null;index"`
	Quantity    int64       `gorm:"not null"`
	Priority    Priority    `gorm:"type:varchar(10);not null"`
	Deadline    *time.Time  `gorm:"type:date"`
	Customer    string      `gorm:"type:varchar(200)"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index"`
	Calculation Calculation `gorm:"type:jsonb;not null"`
	Notes       string      `gorm:"type:text"`
	CreatedBy   uuid.UUID   `gorm:"type:uuid;not null"`
	ConfirmedAt *time.Time
	CancelledAt *time.Time
	Tasks       []OrderTask `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (ProductionOrder) TableName() string {
	return "production_orders"
}

// OrderDetails are the customer-facing attributes of an order
type OrderDetails struct {
	Priority Priority
	Deadline *time.Time
	Customer string
	Notes    string
}

// NewProductionOrder creates a draft order with its calculation
func NewProductionOrder(number, productType string, quantity int64, calc Calculation, details OrderDetails, createdBy uuid.UUID) (*ProductionOrder, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("Order number cannot be empty")
	}
	if strings.TrimSpace(productType) == "" {
		return nil, shared.NewValidationError("Product type cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("Order quantity must be positive")
	}
	if details.Priority == "" {
		details.Priority = PriorityNormal
	}
	if !details.Priority.IsValid() {
		return nil, shared.NewValidationError("Invalid priority")
	}
	if err := calc.Validate(); err != nil {
		return nil, err
	}
	o := &ProductionOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		ProductType:       strings.TrimSpace(productType),
		Quantity:          quantity,
		Priority:          details.Priority,
		Deadline:          details.Deadline,
		Customer:          strings.TrimSpace(details.Customer),
		Status:            OrderDraft,
		Calculation:       calc,
		Notes:             details.Notes,
		CreatedBy:         createdBy,
	}
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderCreated, o))
	return o, nil
}

// Recalculate replaces the calculation of a draft order
func (o *ProductionOrder) Recalculate(quantity int64, calc Calculation) error {
	if o.Status != OrderDraft {
		return shared.NewStateError("Calculation is frozen once the order is confirmed")
	}
	if quantity <= 0 {
		return shared.NewValidationError("Order quantity must be positive")
	}
	if err := calc.Validate(); err != nil {
		return err
	}
	o.Quantity = quantity
	o.Calculation = calc
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderRecalculated, o))
	return nil
}

// Confirm freezes the calculation and generates one task per department. The
// first department in plant flow starts queued, later ones start as new.
func (o *ProductionOrder) Confirm(now time.Time) ([]OrderTask, error) {
	if o.Status != OrderDraft {
		return nil, shared.NewStateError("Only a draft order can be confirmed")
	}
	if err := o.Calculation.Validate(); err != nil {
		return nil, err
	}
	tasks := make([]OrderTask, 0, len(o.Calculation.Departments))
	for i, dc := range o.Calculation.Departments {
		status := TaskNew
		if i == 0 {
			status = TaskWaiting
		}
		tasks = append(tasks, newOrderTask(o.ID, dc, status))
	}
	o.Tasks = tasks
	o.Status = OrderConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderConfirmed, o))
	return tasks, nil
}

// Cancel stops the order; a completed order cannot be cancelled
func (o *ProductionOrder) Cancel(now time.Time) error {
	switch o.Status {
	case OrderCancelled:
		return shared.NewStateError("Order is already cancelled")
	case OrderCompleted:
		return shared.NewStateError("A completed order cannot be cancelled")
	}
	o.Status = OrderCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderCancelled, o))
	return nil
}

// AcceptsTaskUpdates returns a state error when task progress may not change
func (o *ProductionOrder) AcceptsTaskUpdates() error {
	switch o.Status {
	case OrderCancelled:
		return shared.NewStateError("Order " + o.Number + " is cancelled")
	case OrderDraft:
		return shared.NewStateError("Order " + o.Number + " is not confirmed")
	}
	return nil
}

// AggregateStatus rolls task progress up to the order:
// completed when every non-excluded task is done, in progress when any task
// is in progress, otherwise the order's own status.
func (o *ProductionOrder) AggregateStatus() OrderStatus {
	if o.Status == OrderDraft || o.Status == OrderCancelled {
		return o.Status
	}
	counted, done, working := 0, 0, false
	for i := range o.Tasks {
		t := &o.Tasks[i]
		if t.Status == TaskInProgress {
			working = true
		}
		if t.Excluded {
			continue
		}
		counted++
		if t.Status == TaskDone {
			done++
		}
	}
	switch {
	case counted > 0 && done == counted:
		return OrderCompleted
	case working:
		return OrderInProgress
	}
	return OrderConfirmed
}

// SyncStatus stores the rolled-up status and reports whether it changed
func (o *ProductionOrder) SyncStatus(now time.Time) bool {
	next := o.AggregateStatus()
	if next == o.Status {
		return false
	}
	o.Status = next
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderStatusChanged, o))
	return true
}

// CanDelete returns a state error unless the order is a draft or cancelled
func (o *ProductionOrder) CanDelete() error {
	if o.Status != OrderDraft && o.Status != OrderCancelled {
		return shared.NewStateError("Only draft or cancelled orders can be deleted")
	}
	return nil
}

// Task returns the task with id
func (o *ProductionOrder) Task(id uuid.UUID) (*OrderTask, bool) {
	for i := range o.Tasks {
		if o.Tasks[i].ID == id {
			return &o.Tasks[i], true
		}
	}
	return nil, false
}
