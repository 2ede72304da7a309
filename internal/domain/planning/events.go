package planning

import (
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeProductionOrder is the aggregate type of planning events
const AggregateTypeProductionOrder = "ProductionOrder"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderRecalculated  = "OrderRecalculated"
	EventTypeOrderConfirmed     = "OrderConfirmed"
	EventTypeOrderCancelled     = "OrderCancelled"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderDeleted       = "OrderDeleted"
	EventTypeTaskStatusChanged  = "TaskStatusChanged"
)

// OrderEvent is raised on order lifecycle changes
type OrderEvent struct {
	shared.BaseDomainEvent
	Number      string      `json:"number"`
	ProductType string      `json:"product_type"`
	Status      OrderStatus `json:"status"`
}

// NewOrderEvent creates an order event of the given type
func NewOrderEvent(eventType string, o *ProductionOrder) *OrderEvent {
	return &OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProductionOrder, o.ID),
		Number:          o.Number,
		ProductType:     o.ProductType,
		Status:          o.Status,
	}
}

// TaskStatusChangedEvent is raised when a department task changes status
type TaskStatusChangedEvent struct {
	shared.BaseDomainEvent
	TaskID     uuid.UUID        `json:"task_id"`
	Department plant.Department `json:"department"`
	From       TaskStatus       `json:"from"`
	To         TaskStatus       `json:"to"`
	Correction bool             `json:"correction,omitempty"`
}

// NewTaskStatusChangedEvent creates a new TaskStatusChangedEvent
func NewTaskStatusChangedEvent(t *OrderTask, from TaskStatus, correction bool) *TaskStatusChangedEvent {
	return &TaskStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskStatusChanged, AggregateTypeProductionOrder, t.OrderID),
		TaskID:          t.ID,
		Department:      t.Department,
		From:            from,
		To:              t.Status,
		Correction:      correction,
	}
}
