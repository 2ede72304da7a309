package router

import (
	"github.com/fibc/backend/internal/interfaces/http/handler"
)

// Handlers groups the plant handlers mounted under the API prefix
type Handlers struct {
	Ledger   *handler.LedgerHandler
	Machines *handler.MachineHandler
	Shifts   *handler.ShiftHandler
	Units    *handler.UnitHandler
	Orders   *handler.OrderHandler
	Tasks    *handler.TaskHandler
	Realtime *handler.RealtimeHandler
	System   *handler.SystemHandler
}

// RegisterPlant registers every plant route group on r
func RegisterPlant(r *Router, h Handlers) *Router {
	materials := NewDomainGroup("materials", "/materials")
	materials.GET("", h.Ledger.ListMaterials).
		POST("", h.Ledger.CreateMaterial).
		GET("/:id/balance", h.Ledger.GetBalance).
		GET("/:id/movements", h.Ledger.ListMovements).
		POST("/:id/reconcile", h.Ledger.Reconcile)

	movements := NewDomainGroup("movements", "/movements")
	movements.POST("", h.Ledger.RecordMovement).
		DELETE("/:id", h.Ledger.DeleteMovement)

	balances := NewDomainGroup("balances", "/balances")
	balances.GET("", h.Ledger.ListBalances).
		GET("/classes/:class", h.Ledger.BalanceByClass)

	machines := NewDomainGroup("machines", "/machines")
	machines.GET("", h.Machines.List).
		POST("", h.Machines.Create)

	shifts := NewDomainGroup("shifts", "/shifts")
	shifts.GET("", h.Shifts.List).
		POST("", h.Shifts.Open).
		GET("/:id", h.Shifts.Get).
		POST("/:id/close", h.Shifts.Close).
		DELETE("/:id", h.Shifts.Delete)

	units := NewDomainGroup("units", "/units")
	units.GET("", h.Units.List).
		POST("", h.Units.Start).
		GET("/:id", h.Units.Get).
		GET("/:id/history", h.Units.History).
		POST("/:id/accumulate", h.Units.Accumulate).
		POST("/:id/complete", h.Units.Complete).
		POST("/:id/transfer", h.Units.Transfer).
		POST("/:id/return", h.Units.Return).
		POST("/:id/consume", h.Units.Consume).
		DELETE("/:id", h.Units.Delete)

	orders := NewDomainGroup("orders", "/orders")
	orders.GET("", h.Orders.List).
		POST("", h.Orders.Create).
		POST("/preview", h.Orders.Preview).
		GET("/:id", h.Orders.Get).
		POST("/:id/recalculate", h.Orders.Recalculate).
		POST("/:id/confirm", h.Orders.Confirm).
		POST("/:id/cancel", h.Orders.Cancel).
		DELETE("/:id", h.Orders.Delete)

	specs := NewDomainGroup("product-specs", "/product-specs")
	specs.GET("", h.Orders.ListSpecs).
		PUT("", h.Orders.SaveSpec)

	tasks := NewDomainGroup("tasks", "/tasks")
	tasks.POST("/:id/accept", h.Tasks.Accept).
		POST("/:id/start", h.Tasks.Start).
		POST("/:id/complete", h.Tasks.Complete).
		POST("/:id/correct", h.Tasks.Correct).
		PUT("/:id/excluded", h.Tasks.SetExcluded)

	departments := NewDomainGroup("departments", "/departments")
	departments.GET("/:department/tasks", h.Tasks.ListForDepartment)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.Info)

	r.Register(materials).
		Register(movements).
		Register(balances).
		Register(machines).
		Register(shifts).
		Register(units).
		Register(orders).
		Register(specs).
		Register(tasks).
		Register(departments).
		Register(system)

	if h.Realtime != nil {
		stream := NewDomainGroup("realtime", "/ws")
		stream.GET("", h.Realtime.Stream)
		r.Register(stream)
	}
	return r
}
