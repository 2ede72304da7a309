package handler

import (
	ledgerapp "github.com/fibc/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// LedgerHandler serves materials, warehouse movements and balances
type LedgerHandler struct {
	BaseHandler
	service *ledgerapp.Service
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *ledgerapp.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// CreateMaterial POST /materials
func (h *LedgerHandler) CreateMaterial(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req ledgerapp.CreateMaterialRequest
	if !h.bindJSON(c, &req) {
		return
	}
	material, err := h.service.CreateMaterial(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, material)
}

// ListMaterials GET /materials?class=
func (h *LedgerHandler) ListMaterials(c *gin.Context) {
	materials, err := h.service.ListMaterials(c.Request.Context(), c.Query("class"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, materials)
}

// RecordMovement POST /movements
func (h *LedgerHandler) RecordMovement(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req ledgerapp.RecordMovementRequest
	if !h.bindJSON(c, &req) {
		return
	}
	movement, err := h.service.RecordMovement(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, movement)
}

// DeleteMovement DELETE /movements/:id
func (h *LedgerHandler) DeleteMovement(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteMovement(c.Request.Context(), caller, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListMovements GET /materials/:id/movements
func (h *LedgerHandler) ListMovements(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var filter ledgerapp.MovementListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	movements, err := h.service.ListMovements(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}

// GetBalance GET /materials/:id/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// ListBalances GET /balances?class=
func (h *LedgerHandler) ListBalances(c *gin.Context) {
	balances, err := h.service.ListBalances(c.Request.Context(), c.Query("class"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balances)
}

// BalanceByClass GET /balances/classes/:class
func (h *LedgerHandler) BalanceByClass(c *gin.Context) {
	total, err := h.service.BalanceByClass(c.Request.Context(), c.Param("class"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, total)
}

// Reconcile POST /materials/:id/reconcile
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.ReconcileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.service.Reconcile(c.Request.Context(), id, req.Counted)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
