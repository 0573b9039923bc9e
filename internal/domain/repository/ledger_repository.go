package repository

import (
	"context"

	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// LedgerRepository define el puerto de persistencia del libro presupuestal.
// El libro es append-only: no existe Update ni Delete.
type LedgerRepository interface {
	// Append agrega un asiento. Falla con domain.ErrDuplicate si la clave de
	// idempotencia ya existe (índice único).
	Append(ctx context.Context, e *entity.LedgerEntry) error
	// GetByIdempotencyKey devuelve el asiento registrado con esa clave, o nil
	// si no existe. Es la consulta de replay seguro.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.LedgerEntry, error)
	// GetByReference devuelve el asiento de un movimiento dado para una
	// referencia de negocio, o nil si no existe.
	GetByReference(ctx context.Context, movement string, ref entity.Reference) (*entity.LedgerEntry, error)
	ListByBalance(ctx context.Context, centro, sector string, limit, offset int) ([]*entity.LedgerEntry, error)
}
