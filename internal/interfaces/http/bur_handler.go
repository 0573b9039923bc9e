package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/application/dto"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// BurHandler maneja las peticiones HTTP del flujo de solicitudes de
// actualización de presupuesto.
type BurHandler struct {
	workflow *appbudget.BurWorkflow
}

// NewBurHandler construye el handler.
func NewBurHandler(workflow *appbudget.BurWorkflow) *BurHandler {
	return &BurHandler{workflow: workflow}
}

// Create godoc
// @Summary      Crear una solicitud de actualización de presupuesto
// @Tags         burs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBurRequest  true  "centro, sector, amount_cents, justification"
// @Success      201   {object}  dto.BurResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/burs [post]
func (h *BurHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBurRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tctx := txContext(c)
	bur, err := h.workflow.CreateBur(c.Context(), appbudget.CreateBurInput{
		Centro:        in.Centro,
		Sector:        in.Sector,
		AmountCents:   in.AmountCents,
		Justification: in.Justification,
		RequesterID:   GetUserID(c),
		RequesterRole: tctx.ActorRole,
		Roles:         budget.NewRoleSet(GetRoles(c)...),
		Ctx:           tctx,
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(burResponse(bur))
}

// Approve godoc
// @Summary      Aprobar una BUR (el nivel requerido manda quién puede)
// @Tags         burs
// @Security     Bearer
// @Router       /api/burs/{id}/approve [post]
func (h *BurHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.workflow.Approve)
}

// Reject godoc
// @Summary      Rechazar una BUR (terminal)
// @Tags         burs
// @Security     Bearer
// @Router       /api/burs/{id}/reject [post]
func (h *BurHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.workflow.Reject)
}

func (h *BurHandler) decide(
	c *fiber.Ctx,
	fn func(ctx context.Context, in appbudget.DecisionInput) (*appbudget.DecisionResult, error),
) error {
	var in dto.BurDecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	result, err := fn(c.Context(), appbudget.DecisionInput{
		BurID:      c.Params("id"),
		ApproverID: GetUserID(c),
		Roles:      budget.NewRoleSet(GetRoles(c)...),
		Comment:    in.Comment,
		Ctx:        txContext(c),
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	out := dto.BurDecisionResponse{NewState: result.NewState}
	if result.Applied != nil {
		applied := movementResponse(result.Applied)
		out.Applied = &applied
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Consultar una BUR con su cadena de aprobaciones
// @Tags         burs
// @Security     Bearer
// @Router       /api/burs/{id} [get]
func (h *BurHandler) GetByID(c *fiber.Ctx) error {
	bur, err := h.workflow.GetBur(c.Context(), c.Params("id"))
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(burResponse(bur))
}

// List godoc
// @Summary      Listar BURs de un centro (filtro opcional por estado)
// @Tags         burs
// @Security     Bearer
// @Router       /api/burs [get]
func (h *BurHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "query inválido"})
	}
	page.DefaultPage()

	centro := c.Query("centro")
	if centro == "" {
		centro = GetCentro(c)
	}
	list, err := h.workflow.ListBurs(c.Context(), centro, c.Query("state"), page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.BurResponse, 0, len(list))
	for _, bur := range list {
		out = append(out, burResponse(bur))
	}
	return c.JSON(out)
}

func burResponse(bur *entity.BudgetUpdateRequest) dto.BurResponse {
	approvals := make([]dto.ApprovalResponse, 0, len(bur.Approvals))
	for _, a := range bur.Approvals {
		approvals = append(approvals, dto.ApprovalResponse{
			ApproverID: a.ApproverID,
			Role:       a.Role,
			Level:      a.Level,
			Decision:   a.Decision,
			Comment:    a.Comment,
			Timestamp:  a.Timestamp,
		})
	}
	return dto.BurResponse{
		ID:            bur.ID,
		Centro:        bur.Centro,
		Sector:        bur.Sector,
		AmountCents:   bur.RequestedAmountCents,
		AmountDisplay: dto.DisplayAmount(bur.RequestedAmountCents),
		Justification: bur.Justification,
		RequesterID:   bur.RequesterID,
		RequesterRole: bur.RequesterRole,
		RequiredLevel: bur.RequiredLevel,
		State:         bur.State,
		Approvals:     approvals,
		CreatedAt:     bur.CreatedAt,
		UpdatedAt:     bur.UpdatedAt,
	}
}
