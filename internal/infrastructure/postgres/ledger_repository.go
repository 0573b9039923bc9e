package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación append-only del libro presupuestal sobre
// PostgreSQL. No existe Update ni Delete: las correcciones entran como
// movimientos de reversa.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `
	id, idempotency_key, centro, sector, movement, amount_cents,
	balance_before_cents, balance_after_cents, reference_kind, reference_id,
	actor_id, actor_role, trace_id, reason, created_at`

// Append agrega un asiento. El índice único sobre idempotency_key convierte el
// doble registro de la misma clave en domain.ErrDuplicate.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	query := `
		INSERT INTO budget_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.IdempotencyKey, e.Centro, e.Sector, e.Movement, e.AmountCents,
		e.BalanceBeforeCents, e.BalanceAfterCents, e.Reference.Kind, e.Reference.ID,
		e.ActorID, e.ActorRole, e.TraceID, e.Reason, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// GetByIdempotencyKey devuelve el asiento con esa clave, o nil si no existe.
func (r *LedgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM budget_ledger WHERE idempotency_key = $1`
	return r.scanOne(ctx, query, key)
}

// GetByReference devuelve el asiento de un movimiento para una referencia de
// negocio, o nil si no existe.
func (r *LedgerRepo) GetByReference(ctx context.Context, movement string, ref entity.Reference) (*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM budget_ledger
		WHERE movement = $1 AND reference_kind = $2 AND reference_id = $3
		ORDER BY created_at LIMIT 1`
	return r.scanOne(ctx, query, movement, ref.Kind, ref.ID)
}

func (r *LedgerRepo) scanOne(ctx context.Context, query string, args ...any) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&e.ID, &e.IdempotencyKey, &e.Centro, &e.Sector, &e.Movement, &e.AmountCents,
		&e.BalanceBeforeCents, &e.BalanceAfterCents, &e.Reference.Kind, &e.Reference.ID,
		&e.ActorID, &e.ActorRole, &e.TraceID, &e.Reason, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}

// ListByBalance lista los asientos de un (centro, sector), más recientes primero.
func (r *LedgerRepo) ListByBalance(ctx context.Context, centro, sector string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM budget_ledger
		WHERE centro = $1 AND sector = $2
		ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, centro, sector, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.IdempotencyKey, &e.Centro, &e.Sector, &e.Movement, &e.AmountCents,
			&e.BalanceBeforeCents, &e.BalanceAfterCents, &e.Reference.Kind, &e.Reference.ID,
			&e.ActorID, &e.ActorRole, &e.TraceID, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
