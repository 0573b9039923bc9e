package repository

import (
	"context"

	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// BalanceRepository define el puerto de persistencia para saldos presupuestales
// por (centro, sector).
type BalanceRepository interface {
	Get(ctx context.Context, centro, sector string) (*entity.Balance, error)
	// GetForUpdate bloquea la fila del saldo (SELECT FOR UPDATE) antes de
	// leerla. Debe usarse dentro de una transacción; es el punto de
	// serialización por clave del motor. Devuelve nil si no existe.
	GetForUpdate(ctx context.Context, centro, sector string) (*entity.Balance, error)
	// Create registra la asignación inicial. Falla con domain.ErrDuplicate si
	// la clave ya existe.
	Create(ctx context.Context, b *entity.Balance) error
	// UpdateAmounts escribe total/disponible condicionado a la versión leída
	// (compare-and-swap). Cero filas afectadas significa que otro escritor
	// avanzó la versión: domain.ErrConcurrentModification, sin mutación.
	UpdateAmounts(ctx context.Context, b *entity.Balance, expectedVersion int64) error
	ListByCentro(ctx context.Context, centro string, limit, offset int) ([]*entity.Balance, error)
}
