package http

import (
	"github.com/gofiber/fiber/v2"
	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine      *appbudget.AtomicTransaction
	BurWorkflow *appbudget.BurWorkflow
	BalanceRepo repository.BalanceRepository
	LedgerRepo  repository.LedgerRepository
	Notifier    appbudget.Notifier
	JWTSecret   string
}

// Router registra las rutas de la API. Todo el motor presupuestal exige
// Bearer Token; asignación y ajuste quedan además restringidos a admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Motor presupuestal (protegido)
	budgetGroup := protected.Group("/budget")
	budgetHandler := NewBudgetHandler(deps.Engine, deps.BalanceRepo, deps.LedgerRepo, deps.Notifier)
	budgetGroup.Post("/consume", budgetHandler.Consume)
	budgetGroup.Post("/reverse", budgetHandler.Reverse)
	budgetGroup.Post("/balances",
		RequireRole(budget.RoleAdmin, budget.RoleAdministrador), budgetHandler.Allocate)
	budgetGroup.Post("/adjust",
		RequireRole(budget.RoleAdmin, budget.RoleAdministrador), budgetHandler.Adjust)
	budgetGroup.Get("/balances", budgetHandler.ListBalances)
	budgetGroup.Get("/balances/:centro/:sector", budgetHandler.GetBalance)
	budgetGroup.Get("/balances/:centro/:sector/ledger", budgetHandler.ListLedger)

	// Solicitudes de actualización de presupuesto (protegido; el
	// PermissionGate decide por monto y nivel, no el router)
	burs := protected.Group("/burs")
	burHandler := NewBurHandler(deps.BurWorkflow)
	burs.Post("/", burHandler.Create)
	burs.Get("/", burHandler.List)
	burs.Get("/:id", burHandler.GetByID)
	burs.Post("/:id/approve", burHandler.Approve)
	burs.Post("/:id/reject", burHandler.Reject)
}
