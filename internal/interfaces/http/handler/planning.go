package handler

import (
	"context"

	planningapp "github.com/fibc/backend/internal/application/planning"
	"github.com/fibc/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type orderOp func(ctx context.Context, caller identity.Caller, id uuid.UUID) (*planningapp.OrderResponse, error)

type taskOp func(ctx context.Context, caller identity.Caller, id uuid.UUID) (*planningapp.TaskResponse, error)

// OrderHandler serves production orders and product specs
type OrderHandler struct {
	BaseHandler
	service *planningapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *planningapp.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Preview POST /orders/preview
func (h *OrderHandler) Preview(c *gin.Context) {
	var req planningapp.PreviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	calc, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, calc)
}

// Create POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req planningapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.service.CreateOrder(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Recalculate POST /orders/:id/recalculate
func (h *OrderHandler) Recalculate(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req planningapp.RecalculateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.service.Recalculate(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Confirm POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

// Cancel POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *OrderHandler) transition(c *gin.Context, op orderOp) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	order, err := op(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), caller, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var filter planningapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	orders, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, pageOr(filter.Page, 1), pageOr(filter.PageSize, 20))
}

// ListSpecs GET /product-specs
func (h *OrderHandler) ListSpecs(c *gin.Context) {
	specs, err := h.service.ListProductSpecs(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, specs)
}

// SaveSpec PUT /product-specs
func (h *OrderHandler) SaveSpec(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req planningapp.SaveProductSpecRequest
	if !h.bindJSON(c, &req) {
		return
	}
	spec, err := h.service.SaveProductSpec(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, spec)
}

// TaskHandler serves the department task board
type TaskHandler struct {
	BaseHandler
	service *planningapp.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(service *planningapp.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// ListForDepartment GET /departments/:department/tasks?status=
func (h *TaskHandler) ListForDepartment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	tasks, err := h.service.ListDepartmentTasks(c.Request.Context(), caller, c.Param("department"), c.Query("status"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tasks)
}

// Accept POST /tasks/:id/accept
func (h *TaskHandler) Accept(c *gin.Context) {
	h.transition(c, h.service.Accept)
}

// Start POST /tasks/:id/start
func (h *TaskHandler) Start(c *gin.Context) {
	h.transition(c, h.service.Start)
}

// Complete POST /tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Correct POST /tasks/:id/correct
func (h *TaskHandler) Correct(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req planningapp.CorrectTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	task, err := h.service.Correct(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// SetExcluded PUT /tasks/:id/excluded
func (h *TaskHandler) SetExcluded(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req planningapp.ExcludeTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	task, err := h.service.SetExcluded(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

func (h *TaskHandler) transition(c *gin.Context, op taskOp) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	task, err := op(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}
