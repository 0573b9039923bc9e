package budget

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

// BurWorkflow orquesta el ciclo de vida de las solicitudes de actualización de
// presupuesto: creación con gate de permisos, cadena de aprobaciones con la
// máquina de estados del dominio, y aplicación al saldo al llegar al estado
// terminal APPROVED — dentro de la misma transacción que el cambio de estado,
// con la misma disciplina de bloqueo por clave que cualquier otro movimiento.
type BurWorkflow struct {
	txRunner    TxRunner
	burRepo     repository.BurRepository
	balanceRepo repository.BalanceRepository
	gate        *budget.PermissionGate
	engine      *AtomicTransaction
	notifier    Notifier
}

// NewBurWorkflow construye el flujo. burRepo y balanceRepo van atados al pool
// (solo lecturas fuera de transacción); las escrituras pasan por txRunner.
func NewBurWorkflow(
	txRunner TxRunner,
	burRepo repository.BurRepository,
	balanceRepo repository.BalanceRepository,
	gate *budget.PermissionGate,
	engine *AtomicTransaction,
	notifier Notifier,
) *BurWorkflow {
	return &BurWorkflow{
		txRunner:    txRunner,
		burRepo:     burRepo,
		balanceRepo: balanceRepo,
		gate:        gate,
		engine:      engine,
		notifier:    notifier,
	}
}

// CreateBurInput entrada para crear una BUR.
type CreateBurInput struct {
	Centro        string
	Sector        string
	AmountCents   int64
	Justification string
	RequesterID   string
	RequesterRole string
	Roles         budget.RoleSet
	Ctx           budget.TransactionContext
}

// CreateBur valida permisos por monto, fija el nivel de aprobación requerido y
// persiste la solicitud en estado PENDING. El nivel queda congelado en la BUR:
// cambios posteriores de umbrales no la reclasifican.
func (w *BurWorkflow) CreateBur(ctx context.Context, in CreateBurInput) (*entity.BudgetUpdateRequest, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !w.gate.MayCreateBur(in.Roles, in.AmountCents) {
		return nil, &domain.InsufficientRoleError{
			RequiredLevel: budget.ResolveApprovalLevel(in.AmountCents),
			HeldRoles:     in.Roles.Slice(),
		}
	}
	bal, err := w.balanceRepo.Get(ctx, in.Centro, in.Sector)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, domain.ErrBalanceNotFound
	}

	now := in.Ctx.At()
	bur := &entity.BudgetUpdateRequest{
		ID:                   uuid.New().String(),
		Centro:               in.Centro,
		Sector:               in.Sector,
		RequestedAmountCents: in.AmountCents,
		Justification:        in.Justification,
		RequesterID:          in.RequesterID,
		RequesterRole:        in.RequesterRole,
		RequiredLevel:        budget.ResolveApprovalLevel(in.AmountCents),
		State:                entity.BurPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := w.burRepo.Create(ctx, bur); err != nil {
		return nil, err
	}
	w.notifier.BurTransition(ctx, bur, "")
	return bur, nil
}

// DecisionInput entrada para aprobar o rechazar una BUR.
type DecisionInput struct {
	BurID      string
	ApproverID string
	Roles      budget.RoleSet
	Comment    string
	Ctx        budget.TransactionContext
}

// DecisionResult resultado de una decisión sobre una BUR.
type DecisionResult struct {
	NewState string
	// Applied trae el movimiento del saldo cuando la decisión llevó la BUR al
	// estado terminal APPROVED; nil en cualquier otro caso.
	Applied *MovementResult
}

// Approve registra una aprobación. El gate exige poder aprobar el nivel
// requerido por la BUR; la máquina de estados decide la transición con el
// nivel que el aprobador puede otorgar. Si la BUR llega a APPROVED, el crédito
// al saldo se aplica en la misma transacción, exactamente una vez (la clave de
// idempotencia derivada del ID de la BUR absorbe los reintentos).
func (w *BurWorkflow) Approve(ctx context.Context, in DecisionInput) (*DecisionResult, error) {
	return w.decide(ctx, in, entity.DecisionApprove)
}

// Reject registra un rechazo terminal. Puede rechazar cualquier rol autorizado
// a aprobar el nivel requerido de la BUR.
func (w *BurWorkflow) Reject(ctx context.Context, in DecisionInput) (*DecisionResult, error) {
	return w.decide(ctx, in, entity.DecisionReject)
}

func (w *BurWorkflow) decide(ctx context.Context, in DecisionInput, decision string) (*DecisionResult, error) {
	var (
		result   DecisionResult
		changed  *entity.BudgetUpdateRequest
		previous string
	)
	err := w.txRunner.RunBur(ctx, func(
		burRepo repository.BurRepository,
		balanceRepo repository.BalanceRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		bur, err := burRepo.GetByIDForUpdate(ctx, in.BurID)
		if err != nil {
			return err
		}
		if bur == nil {
			return domain.ErrBurNotFound
		}
		if bur.IsTerminal() {
			return domain.ErrAlreadyTerminal
		}
		if !w.gate.MayApproveBur(in.Roles, bur.RequiredLevel) {
			return &domain.InsufficientRoleError{
				RequiredLevel: bur.RequiredLevel,
				HeldRoles:     in.Roles.Slice(),
			}
		}

		approval := entity.Approval{
			ApproverID: in.ApproverID,
			Role:       in.Ctx.ActorRole,
			Level:      w.gate.GrantableLevel(in.Roles),
			Decision:   decision,
			Comment:    in.Comment,
			Timestamp:  in.Ctx.At(),
		}

		previous = bur.State
		newState, err := budget.ApplyApproval(bur, approval)
		if err != nil {
			return err
		}
		if err := burRepo.UpdateState(ctx, bur, approval); err != nil {
			return err
		}

		if newState == entity.BurApproved {
			applied, err := w.engine.applyBurInTx(ctx, balanceRepo, ledgerRepo,
				bur.Centro, bur.Sector, bur.RequestedAmountCents, bur.ID, in.Ctx)
			if err != nil {
				return err
			}
			result.Applied = applied
		}
		result.NewState = newState
		changed = bur
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.notifier.BurTransition(ctx, changed, previous)
	return &result, nil
}

// GetBur devuelve una BUR por ID (domain.ErrBurNotFound si no existe).
func (w *BurWorkflow) GetBur(ctx context.Context, id string) (*entity.BudgetUpdateRequest, error) {
	bur, err := w.burRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bur == nil {
		return nil, domain.ErrBurNotFound
	}
	return bur, nil
}

// ListBurs lista BURs de un centro, opcionalmente filtradas por estado.
func (w *BurWorkflow) ListBurs(ctx context.Context, centro, state string, limit, offset int) ([]*entity.BudgetUpdateRequest, error) {
	return w.burRepo.ListByCentro(ctx, centro, state, limit, offset)
}
