package repository

import (
	"context"

	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// BurRepository define el puerto de persistencia para solicitudes de
// actualización de presupuesto (BUR) y su cadena ordenada de aprobaciones.
type BurRepository interface {
	Create(ctx context.Context, bur *entity.BudgetUpdateRequest) error
	GetByID(ctx context.Context, id string) (*entity.BudgetUpdateRequest, error)
	// GetByIDForUpdate bloquea la fila de la BUR dentro de la transacción para
	// que dos aprobaciones concurrentes no lean el mismo estado.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.BudgetUpdateRequest, error)
	// UpdateState persiste el nuevo estado y agrega la última aprobación de la
	// cadena. El estado solo avanza; nunca retrocede.
	UpdateState(ctx context.Context, bur *entity.BudgetUpdateRequest, approval entity.Approval) error
	ListByCentro(ctx context.Context, centro string, state string, limit, offset int) ([]*entity.BudgetUpdateRequest, error)
}
