package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/application/dto"
	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

// BudgetHandler maneja las peticiones HTTP del motor presupuestal: consumo y
// reversa (invocados por el flujo de requisiciones), asignación y ajuste
// (solo admin) y el surface de lectura de saldos y libro.
type BudgetHandler struct {
	engine      *appbudget.AtomicTransaction
	balanceRepo repository.BalanceRepository
	ledgerRepo  repository.LedgerRepository
	notifier    appbudget.Notifier
}

// NewBudgetHandler construye el handler.
func NewBudgetHandler(
	engine *appbudget.AtomicTransaction,
	balanceRepo repository.BalanceRepository,
	ledgerRepo repository.LedgerRepository,
	notifier appbudget.Notifier,
) *BudgetHandler {
	return &BudgetHandler{engine: engine, balanceRepo: balanceRepo, ledgerRepo: ledgerRepo, notifier: notifier}
}

// txContext arma la atribución de la operación desde el request autenticado.
func txContext(c *fiber.Ctx) budget.TransactionContext {
	traceID, _ := c.Locals("requestid").(string)
	return budget.TransactionContext{
		TraceID:   traceID,
		ActorID:   GetUserID(c),
		ActorRole: strings.Join(GetRoles(c), ","),
		ActorIP:   c.IP(),
		Timestamp: time.Now(),
	}
}

// Consume godoc
// @Summary      Consumir presupuesto al aprobar una requisición
// @Tags         budget
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeBudgetRequest  true  "centro, sector, amount_cents, requisition_id"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/budget/consume [post]
func (h *BudgetHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeBudgetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.engine.ConsumeBudget(c.Context(), appbudget.ConsumeInput{
		Centro:         in.Centro,
		Sector:         in.Sector,
		AmountCents:    in.AmountCents,
		Reference:      entity.Reference{Kind: "requisition", ID: in.RequisitionID},
		IdempotencyKey: in.IdempotencyKey,
		Reason:         in.Reason,
		Ctx:            txContext(c),
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	h.notifyMovement(c, result)
	return c.JSON(movementResponse(result))
}

// Reverse godoc
// @Summary      Reversar un consumo al rechazar o anular la requisición
// @Tags         budget
// @Security     Bearer
// @Router       /api/budget/reverse [post]
func (h *BudgetHandler) Reverse(c *fiber.Ctx) error {
	var in dto.ReverseBudgetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.engine.ReverseConsumption(c.Context(), appbudget.ReverseInput{
		Centro:      in.Centro,
		Sector:      in.Sector,
		AmountCents: in.AmountCents,
		Reference:   entity.Reference{Kind: "requisition", ID: in.RequisitionID},
		Reason:      in.Reason,
		Ctx:         txContext(c),
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	h.notifyMovement(c, result)
	return c.JSON(movementResponse(result))
}

// Allocate godoc
// @Summary      Crear la asignación inicial de un (centro, sector)
// @Tags         budget
// @Security     Bearer
// @Router       /api/budget/balances [post]
func (h *BudgetHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateBudgetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.engine.CreateAllocation(c.Context(), appbudget.AllocateInput{
		Centro:      in.Centro,
		Sector:      in.Sector,
		AmountCents: in.AmountCents,
		Reason:      in.Reason,
		Ctx:         txContext(c),
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	h.notifyMovement(c, result)
	return c.Status(fiber.StatusCreated).JSON(movementResponse(result))
}

// Adjust godoc
// @Summary      Ajuste manual del saldo (solo admin)
// @Tags         budget
// @Security     Bearer
// @Router       /api/budget/adjust [post]
func (h *BudgetHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustBudgetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.engine.ManualAdjustment(c.Context(), appbudget.AdjustInput{
		Centro:      in.Centro,
		Sector:      in.Sector,
		AmountCents: in.AmountCents,
		Reference:   entity.Reference{Kind: "adjustment", ID: in.ReferenceID},
		Reason:      in.Reason,
		Ctx:         txContext(c),
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	h.notifyMovement(c, result)
	return c.JSON(movementResponse(result))
}

// GetBalance godoc
// @Summary      Consultar el saldo de un (centro, sector)
// @Tags         budget
// @Security     Bearer
// @Router       /api/budget/balances/{centro}/{sector} [get]
func (h *BudgetHandler) GetBalance(c *fiber.Ctx) error {
	centro, sector := c.Params("centro"), c.Params("sector")
	bal, err := h.balanceRepo.Get(c.Context(), centro, sector)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if bal == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "BALANCE_NOT_FOUND", Message: "saldo no encontrado"})
	}
	return c.JSON(dto.BalanceResponse{
		Centro:           bal.Centro,
		Sector:           bal.Sector,
		TotalCents:       bal.TotalCents,
		AvailableCents:   bal.AvailableCents,
		ConsumedCents:    bal.ConsumedCents(),
		TotalDisplay:     dto.DisplayAmount(bal.TotalCents),
		AvailableDisplay: dto.DisplayAmount(bal.AvailableCents),
		Version:          bal.Version,
		UpdatedAt:        bal.UpdatedAt,
	})
}

// ListBalances godoc
// @Summary      Listar los saldos de un centro
// @Tags         budget
// @Security     Bearer
// @Router       /api/budget/balances [get]
func (h *BudgetHandler) ListBalances(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "query inválido"})
	}
	page.DefaultPage()

	centro := c.Query("centro")
	if centro == "" {
		centro = GetCentro(c)
	}
	balances, err := h.balanceRepo.ListByCentro(c.Context(), centro, page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.BalanceResponse, 0, len(balances))
	for _, bal := range balances {
		out = append(out, dto.BalanceResponse{
			Centro:           bal.Centro,
			Sector:           bal.Sector,
			TotalCents:       bal.TotalCents,
			AvailableCents:   bal.AvailableCents,
			ConsumedCents:    bal.ConsumedCents(),
			TotalDisplay:     dto.DisplayAmount(bal.TotalCents),
			AvailableDisplay: dto.DisplayAmount(bal.AvailableCents),
			Version:          bal.Version,
			UpdatedAt:        bal.UpdatedAt,
		})
	}
	return c.JSON(out)
}

// ListLedger godoc
// @Summary      Listar los asientos del libro de un (centro, sector)
// @Tags         budget
// @Security     Bearer
// @Router       /api/budget/balances/{centro}/{sector}/ledger [get]
func (h *BudgetHandler) ListLedger(c *fiber.Ctx) error {
	centro, sector := c.Params("centro"), c.Params("sector")
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "query inválido"})
	}
	page.DefaultPage()

	entries, err := h.ledgerRepo.ListByBalance(c.Context(), centro, sector, page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryResponse{
			ID:                 e.ID,
			Movement:           e.Movement,
			AmountCents:        e.AmountCents,
			AmountDisplay:      dto.DisplayAmount(e.AmountCents),
			BalanceBeforeCents: e.BalanceBeforeCents,
			BalanceAfterCents:  e.BalanceAfterCents,
			ReferenceKind:      e.Reference.Kind,
			ReferenceID:        e.Reference.ID,
			ActorID:            e.ActorID,
			ActorRole:          e.ActorRole,
			Reason:             e.Reason,
			CreatedAt:          e.CreatedAt,
		})
	}
	return c.JSON(out)
}

func (h *BudgetHandler) notifyMovement(c *fiber.Ctx, result *appbudget.MovementResult) {
	if result == nil || result.Replayed || result.Entry == nil {
		return
	}
	// El despacho lo hace el orquestador (este handler), nunca el motor.
	h.notifier.MovementCommitted(c.Context(), result.Entry)
}

func movementResponse(r *appbudget.MovementResult) dto.MovementResponse {
	return dto.MovementResponse{
		LedgerID:           r.LedgerID,
		BalanceBeforeCents: r.BalanceBeforeCents,
		BalanceAfterCents:  r.BalanceAfterCents,
		Replayed:           r.Replayed,
	}
}

// writeEngineError traduce la taxonomía de errores del motor a HTTP. Los
// errores de concurrencia van con retryable=true; los de negocio son
// definitivos.
func writeEngineError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_BALANCE",
			Message: insufficient.Error(),
		})
	}
	var role *domain.InsufficientRoleError
	if errors.As(err, &role) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_ROLE",
			Message: role.Error(),
		})
	}
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_AMOUNT", Message: err.Error()})
	case errors.Is(err, domain.ErrBalanceNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "BALANCE_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrConsumoNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "CONSUMO_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrBurNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "BUR_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_TERMINAL", Message: err.Error()})
	case errors.Is(err, domain.ErrOutOfOrder):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "OUT_OF_ORDER", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrConcurrentModification):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENT_MODIFICATION", Message: err.Error(), Retryable: true})
	case errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: err.Error(), Retryable: true})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
