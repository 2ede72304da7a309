package handler

import (
	productionapp "github.com/fibc/backend/internal/application/production"
	"github.com/gin-gonic/gin"
)

// MachineHandler serves the machine registry
type MachineHandler struct {
	BaseHandler
	service *productionapp.MachineService
}

// NewMachineHandler creates a new MachineHandler
func NewMachineHandler(service *productionapp.MachineService) *MachineHandler {
	return &MachineHandler{service: service}
}

// Create POST /machines
func (h *MachineHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req productionapp.CreateMachineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	machine, err := h.service.CreateMachine(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, machine)
}

// List GET /machines?department=
func (h *MachineHandler) List(c *gin.Context) {
	machines, err := h.service.ListMachines(c.Request.Context(), c.Query("department"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, machines)
}

// ShiftHandler serves production shifts
type ShiftHandler struct {
	BaseHandler
	service *productionapp.ShiftService
}

// NewShiftHandler creates a new ShiftHandler
func NewShiftHandler(service *productionapp.ShiftService) *ShiftHandler {
	return &ShiftHandler{service: service}
}

// Open POST /shifts
func (h *ShiftHandler) Open(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req productionapp.OpenShiftRequest
	if !h.bindJSON(c, &req) {
		return
	}
	shift, err := h.service.OpenShift(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, shift)
}

// Close POST /shifts/:id/close
func (h *ShiftHandler) Close(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	shift, err := h.service.CloseShift(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, shift)
}

// Delete DELETE /shifts/:id
func (h *ShiftHandler) Delete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteShift(c.Request.Context(), caller, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get GET /shifts/:id
func (h *ShiftHandler) Get(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	shift, err := h.service.GetShift(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, shift)
}

// List GET /shifts?department=&machine_id=&open=
func (h *ShiftHandler) List(c *gin.Context) {
	var filter productionapp.ShiftListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.MachineID, ok = h.queryID(c, "machine_id"); !ok {
		return
	}
	if filter.Open, ok = h.queryBool(c, "open"); !ok {
		return
	}
	shifts, err := h.service.ListShifts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, shifts)
}

// UnitHandler serves the roll and batch lifecycle
type UnitHandler struct {
	BaseHandler
	service *productionapp.UnitService
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(service *productionapp.UnitService) *UnitHandler {
	return &UnitHandler{service: service}
}

// Start POST /units
func (h *UnitHandler) Start(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req productionapp.StartUnitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.service.Start(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, unit)
}

// Accumulate POST /units/:id/accumulate
func (h *UnitHandler) Accumulate(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req productionapp.AccumulateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.service.Accumulate(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Complete POST /units/:id/complete
func (h *UnitHandler) Complete(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	unit, err := h.service.Complete(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Transfer POST /units/:id/transfer
func (h *UnitHandler) Transfer(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req productionapp.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.service.Transfer(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Return POST /units/:id/return
func (h *UnitHandler) Return(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	unit, err := h.service.Return(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Consume POST /units/:id/consume
func (h *UnitHandler) Consume(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req productionapp.ConsumeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.service.Consume(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// Delete DELETE /units/:id
func (h *UnitHandler) Delete(c *gin.Context) {
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

// Get GET /units/:id
func (h *UnitHandler) Get(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	unit, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// History GET /units/:id/history
func (h *UnitHandler) History(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// List GET /units
func (h *UnitHandler) List(c *gin.Context) {
	var filter productionapp.UnitListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.MachineID, ok = h.queryID(c, "machine_id"); !ok {
		return
	}
	if filter.OrderID, ok = h.queryID(c, "order_id"); !ok {
		return
	}
	units, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, units, total, pageOr(filter.Page, 1), pageOr(filter.PageSize, 20))
}
