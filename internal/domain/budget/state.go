package budget

import (
	"time"

	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// Máquina de estados de una BUR. Las transiciones son monotónicas:
//
//	PENDING → APPROVED_L1 → APPROVED_L2 → APPROVED (terminal)
//	cualquier estado no terminal → REJECTED (terminal)
//
// Reglas:
//   - Una aprobación de nivel ADMIN finaliza la BUR de inmediato, sin importar
//     qué escalones faltaran (cortocircuito).
//   - Una BUR de nivel L1 queda APPROVED con una sola aprobación L1.
//   - Una BUR de nivel L2 exige la aprobación L1 antes de aceptar la L2; una
//     L2 llegada antes de tiempo (o una L1 repetida) es ErrOutOfOrder.
//   - Una BUR de nivel ADMIN acepta el escalamiento L1 → L2 pero solo una
//     aprobación ADMIN la finaliza.
//
// ApplyApproval muta la BUR (estado + cadena de aprobaciones) únicamente si la
// transición es válida; en error la BUR queda intacta.
func ApplyApproval(bur *entity.BudgetUpdateRequest, a entity.Approval) (string, error) {
	if bur.IsTerminal() {
		return bur.State, domain.ErrAlreadyTerminal
	}

	if a.Decision == entity.DecisionReject {
		return transition(bur, a, entity.BurRejected)
	}

	// Cortocircuito: ADMIN finaliza cualquier BUR no terminal.
	if a.Level == entity.LevelAdmin {
		return transition(bur, a, entity.BurApproved)
	}

	next, err := nextStateForLevel(bur, a.Level)
	if err != nil {
		return bur.State, err
	}
	return transition(bur, a, next)
}

// nextStateForLevel calcula la transición para una aprobación L1/L2 según el
// nivel requerido por la BUR y el escalón en el que va.
func nextStateForLevel(bur *entity.BudgetUpdateRequest, level string) (string, error) {
	if levelRank(level) > levelRank(bur.RequiredLevel) {
		// Un nivel mayor al requerido nunca llega aquí por el gate, pero la
		// máquina debe ser total.
		return "", domain.ErrOutOfOrder
	}

	switch bur.State {
	case entity.BurPending:
		if level != entity.LevelL1 {
			return "", domain.ErrOutOfOrder
		}
		if bur.RequiredLevel == entity.LevelL1 {
			return entity.BurApproved, nil
		}
		return entity.BurApprovedL1, nil

	case entity.BurApprovedL1:
		if level != entity.LevelL2 {
			return "", domain.ErrOutOfOrder
		}
		if bur.RequiredLevel == entity.LevelL2 {
			return entity.BurApproved, nil
		}
		return entity.BurApprovedL2, nil

	case entity.BurApprovedL2:
		// Solo falta la firma ADMIN; cualquier L1/L2 adicional sobra.
		return "", domain.ErrOutOfOrder
	}
	return "", domain.ErrOutOfOrder
}

func transition(bur *entity.BudgetUpdateRequest, a entity.Approval, next string) (string, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	bur.Approvals = append(bur.Approvals, a)
	bur.State = next
	bur.UpdatedAt = a.Timestamp
	return next, nil
}
