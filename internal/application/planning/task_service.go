package planning

import (
	"context"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/domain/planning"
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskService drives department tasks through their states
type TaskService struct {
	scope          TransactionScope
	tasks          planning.TaskRepository
	policy         identity.DepartmentPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(scope TransactionScope, tasks planning.TaskRepository, policy identity.DepartmentPolicy, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{scope: scope, tasks: tasks, policy: policy, logger: logger, now: time.Now}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TaskService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the clock
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// Accept moves a new task into the department queue
func (s *TaskService) Accept(ctx context.Context, caller identity.Caller, taskID uuid.UUID) (*TaskResponse, error) {
	return s.advance(ctx, caller, taskID, planning.TaskWaiting)
}

// Start moves a queued task into work
func (s *TaskService) Start(ctx context.Context, caller identity.Caller, taskID uuid.UUID) (*TaskResponse, error) {
	return s.advance(ctx, caller, taskID, planning.TaskInProgress)
}

// Complete finishes a task in work
func (s *TaskService) Complete(ctx context.Context, caller identity.Caller, taskID uuid.UUID) (*TaskResponse, error) {
	return s.advance(ctx, caller, taskID, planning.TaskDone)
}

func (s *TaskService) advance(ctx context.Context, caller identity.Caller, taskID uuid.UUID, to planning.TaskStatus) (*TaskResponse, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	return s.change(ctx, taskID, false, func(o *planning.ProductionOrder, t *planning.OrderTask) error {
		if err := o.AcceptsTaskUpdates(); err != nil {
			return err
		}
		if err := s.policy.Authorize(caller, t.Department); err != nil {
			return err
		}
		return t.Advance(to, s.now())
	})
}

// Correct sets a task status directly. Only administrators may do this.
func (s *TaskService) Correct(ctx context.Context, caller identity.Caller, taskID uuid.UUID, req CorrectTaskRequest) (*TaskResponse, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if !caller.CanCorrect() {
		return nil, shared.NewForbiddenError("Only administrators can correct task status")
	}
	to, ok := planning.ParseTaskStatus(req.Status)
	if !ok {
		return nil, shared.NewValidationError("Unknown task status " + req.Status)
	}
	return s.change(ctx, taskID, true, func(o *planning.ProductionOrder, t *planning.OrderTask) error {
		if o.Status == planning.OrderDraft {
			return shared.NewStateError("Order " + o.Number + " is not confirmed")
		}
		return t.Correct(to, s.now())
	})
}

// change loads the task through its order, applies fn, writes the task with a
// status compare-and-swap and stores the order roll-up in the same transaction.
func (s *TaskService) change(ctx context.Context, taskID uuid.UUID, correction bool, fn func(*planning.ProductionOrder, *planning.OrderTask) error) (*TaskResponse, error) {
	var (
		order *planning.ProductionOrder
		task  *planning.OrderTask
		from  planning.TaskStatus
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stored, err := repos.TaskRepo().FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		order, err = repos.OrderRepo().FindByID(ctx, stored.OrderID)
		if err != nil {
			return err
		}
		var ok bool
		task, ok = order.Task(taskID)
		if !ok {
			return shared.ErrNotFound
		}
		from = task.Status
		if err := fn(order, task); err != nil {
			return err
		}
		if err := repos.TaskRepo().UpdateStatus(ctx, task, from); err != nil {
			return err
		}
		order.AddDomainEvent(planning.NewTaskStatusChangedEvent(task, from, correction))
		order.SyncStatus(s.now())
		// Bumping the order version serialises concurrent task changes of one order.
		return repos.OrderRepo().Update(ctx, order)
	})
	if err != nil {
		if shared.IsConflict(err) {
			s.logger.Warn("task update conflict", zap.String("task_id", taskID.String()), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("task status changed",
		zap.String("order", order.Number),
		zap.String("department", string(task.Department)),
		zap.String("from", string(from)),
		zap.String("to", string(task.Status)),
		zap.Bool("correction", correction))
	if s.eventPublisher != nil && len(order.GetDomainEvents()) > 0 {
		_ = s.eventPublisher.Publish(ctx, order.GetDomainEvents()...)
	}
	order.ClearDomainEvents()
	resp := ToTaskResponse(task)
	return &resp, nil
}

// SetExcluded includes or excludes a task from the order roll-up
func (s *TaskService) SetExcluded(ctx context.Context, caller identity.Caller, taskID uuid.UUID, req ExcludeTaskRequest) (*TaskResponse, error) {
	if err := authorizePlanning(caller); err != nil {
		return nil, err
	}
	var (
		order *planning.ProductionOrder
		task  *planning.OrderTask
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stored, err := repos.TaskRepo().FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		order, err = repos.OrderRepo().FindByID(ctx, stored.OrderID)
		if err != nil {
			return err
		}
		if err := order.AcceptsTaskUpdates(); err != nil {
			return err
		}
		var ok bool
		if task, ok = order.Task(taskID); !ok {
			return shared.ErrNotFound
		}
		if err := task.SetExcluded(req.Excluded); err != nil {
			return err
		}
		if err := repos.TaskRepo().UpdateExcluded(ctx, task); err != nil {
			return err
		}
		order.SyncStatus(s.now())
		return repos.OrderRepo().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task exclusion changed", zap.String("order", order.Number), zap.String("department", string(task.Department)), zap.Bool("excluded", task.Excluded))
	if s.eventPublisher != nil && len(order.GetDomainEvents()) > 0 {
		_ = s.eventPublisher.Publish(ctx, order.GetDomainEvents()...)
	}
	order.ClearDomainEvents()
	resp := ToTaskResponse(task)
	return &resp, nil
}

// ListDepartmentTasks lists the tasks a department sees; new tasks are hidden
func (s *TaskService) ListDepartmentTasks(ctx context.Context, caller identity.Caller, department string, status string) ([]TaskResponse, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	dept, ok := plant.ParseDepartment(department)
	if !ok {
		return nil, shared.NewValidationError("Unknown department " + department)
	}
	if err := s.policy.Authorize(caller, dept); err != nil {
		return nil, err
	}
	filter := shared.DefaultFilter()
	filter.PageSize = 0
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"
	if status != "" {
		st, ok := planning.ParseTaskStatus(status)
		if !ok {
			return nil, shared.NewValidationError("Unknown task status " + status)
		}
		if st == planning.TaskNew {
			return []TaskResponse{}, nil
		}
		filter.Filters["status"] = string(st)
	}
	tasks, err := s.tasks.FindVisibleByDepartment(ctx, dept, filter)
	if err != nil {
		return nil, err
	}
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		if !tasks[i].IsVisibleToDepartment() {
			continue
		}
		out = append(out, ToTaskResponse(&tasks[i]))
	}
	return out, nil
}
