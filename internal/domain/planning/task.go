package planning

import (
	"strings"
	"time"

	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TaskStatus is the progress of a department task. Values are stored as the
// Russian labels the plant uses.
type TaskStatus string

const (
	// TaskNew is a placeholder a department has not accepted yet
	TaskNew TaskStatus = "Новая"
	// TaskWaiting is queued in the department
	TaskWaiting TaskStatus = "Ожидает"
	// TaskInProgress is being worked on
	TaskInProgress TaskStatus = "В работе"
	// TaskDone is finished
	TaskDone TaskStatus = "Выполнено"
)

var taskFlow = []TaskStatus{TaskNew, TaskWaiting, TaskInProgress, TaskDone}

var taskAliases = map[string]TaskStatus{
	"new":         TaskNew,
	"waiting":     TaskWaiting,
	"queued":      TaskWaiting,
	"in_progress": TaskInProgress,
	"done":        TaskDone,
}

// IsValid returns true if the status is known
func (s TaskStatus) IsValid() bool {
	return s.rank() >= 0
}

func (s TaskStatus) rank() int {
	for i, v := range taskFlow {
		if v == s {
			return i
		}
	}
	return -1
}

// Next returns the single forward step from s
func (s TaskStatus) Next() (TaskStatus, bool) {
	r := s.rank()
	if r < 0 || r == len(taskFlow)-1 {
		return "", false
	}
	return taskFlow[r+1], true
}

var lowerRU = cases.Lower(language.Russian)

// ParseTaskStatus accepts a Russian label in any case or an English alias
func ParseTaskStatus(s string) (TaskStatus, bool) {
	key := lowerRU.String(strings.TrimSpace(s))
	for _, v := range taskFlow {
		if lowerRU.String(string(v)) == key {
			return v, true
		}
	}
	v, ok := taskAliases[key]
	return v, ok
}

// OrderTask is the share of an order assigned to one department
type OrderTask struct {
	shared.BaseEntity
	OrderID          uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:uq_order_tasks_department,priority:1"`
	Department       plant.Department `gorm:"type:varchar(20);not null;index;uniqueIndex:uq_order_tasks_department,priority:2"`
	Description      string           `gorm:"type:text"`
	RequiredQuantity decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	RequiredUnit     string           `gorm:"type:varchar(20);not null"`
	Status           TaskStatus       `gorm:"type:varchar(20);not null;index"`
	Excluded         bool             `gorm:"not null;default:false"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// TableName returns the table name for GORM
func (OrderTask) TableName() string {
	return "order_tasks"
}

func newOrderTask(orderID uuid.UUID, dc DepartmentCalculation, status TaskStatus) OrderTask {
	primary := dc.Primary()
	parts := make([]string, 0, len(dc.Items))
	for _, it := range dc.Items {
		parts = append(parts, it.Name+" "+it.Quantity.String()+" "+it.Unit)
	}
	return OrderTask{
		BaseEntity:       shared.NewBaseEntity(),
		OrderID:          orderID,
		Department:       dc.Department,
		Description:      dc.Department.Title() + ": " + strings.Join(parts, "; "),
		RequiredQuantity: primary.Quantity,
		RequiredUnit:     primary.Unit,
		Status:           status,
	}
}

// IsVisibleToDepartment reports whether department views list the task
func (t *OrderTask) IsVisibleToDepartment() bool {
	return t.Status != TaskNew
}

// Advance moves the task one step forward to the requested status
func (t *OrderTask) Advance(to TaskStatus, now time.Time) error {
	next, ok := t.Status.Next()
	if !ok || next != to {
		return shared.NewStateError("Task cannot move from " + string(t.Status) + " to " + string(to))
	}
	if t.Excluded {
		return shared.NewStateError("Task is excluded from the order")
	}
	t.apply(to, now)
	return nil
}

// Correct sets any status directly; reserved for administrative data correction
func (t *OrderTask) Correct(to TaskStatus, now time.Time) error {
	if !to.IsValid() {
		return shared.NewValidationError("Unknown task status")
	}
	t.apply(to, now)
	return nil
}

// SetExcluded includes or excludes a task that has not started yet
func (t *OrderTask) SetExcluded(excluded bool) error {
	if t.Status == TaskInProgress || t.Status == TaskDone {
		return shared.NewStateError("A started task cannot be excluded")
	}
	t.Excluded = excluded
	t.UpdatedAt = time.Now()
	return nil
}

func (t *OrderTask) apply(to TaskStatus, now time.Time) {
	switch to {
	case TaskInProgress:
		t.StartedAt = &now
	case TaskDone:
		t.CompletedAt = &now
	}
	t.Status = to
	t.UpdatedAt = now
}
