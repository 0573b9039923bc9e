package budget

import (
	"context"

	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Es la frontera de atomicidad del motor
// presupuestal: todo lo que fn escriba se confirma o se revierte como unidad.
// La implementación debe acotar la espera de bloqueos (lock_timeout) y mapear
// el vencimiento a domain.ErrLockTimeout.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		balanceRepo repository.BalanceRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error

	// RunBur agrega el repositorio de BURs para el flujo de aprobación, que
	// actualiza la solicitud y aplica el saldo en la misma transacción.
	RunBur(ctx context.Context, fn func(
		burRepo repository.BurRepository,
		balanceRepo repository.BalanceRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error
}

// Notifier publica eventos del flujo presupuestal. Lo invoca el orquestador
// (workflow o handler) después de confirmar la transacción, nunca el motor
// atómico por dentro.
type Notifier interface {
	BurTransition(ctx context.Context, bur *entity.BudgetUpdateRequest, previousState string)
	MovementCommitted(ctx context.Context, entry *entity.LedgerEntry)
}
