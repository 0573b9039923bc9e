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

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con
// pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `centro, sector, total_cents, available_cents, version, updated_at`

// Get obtiene el saldo de un (centro, sector). Devuelve nil si no existe.
func (r *BalanceRepo) Get(ctx context.Context, centro, sector string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM budget_balances WHERE centro = $1 AND sector = $2`
	return r.scanOne(ctx, query, centro, sector)
}

// GetForUpdate obtiene el saldo y bloquea la fila (SELECT FOR UPDATE). Es el
// punto de serialización por clave: dos escritores sobre el mismo
// (centro, sector) se encolan aquí; claves distintas no se estorban. Si el
// lock_timeout de la transacción vence, devuelve domain.ErrLockTimeout.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, centro, sector string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM budget_balances WHERE centro = $1 AND sector = $2 FOR UPDATE`
	b, err := r.scanOne(ctx, query, centro, sector)
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, err
	}
	return b, nil
}

func (r *BalanceRepo) scanOne(ctx context.Context, query string, args ...any) (*entity.Balance, error) {
	var b entity.Balance
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&b.Centro, &b.Sector, &b.TotalCents, &b.AvailableCents, &b.Version, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

// Create registra la asignación inicial con version 0.
func (r *BalanceRepo) Create(ctx context.Context, b *entity.Balance) error {
	query := `
		INSERT INTO budget_balances (centro, sector, total_cents, available_cents, version, updated_at)
		VALUES ($1, $2, $3, $4, 0, now())`
	_, err := r.q.Exec(ctx, query, b.Centro, b.Sector, b.TotalCents, b.AvailableCents)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create balance: %w", err)
	}
	b.Version = 0
	return nil
}

// UpdateAmounts escribe total/disponible condicionado a la versión leída
// (compare-and-swap). Cero filas afectadas = otro escritor avanzó la versión:
// domain.ErrConcurrentModification. En éxito incrementa b.Version en memoria
// para reflejar la fila.
func (r *BalanceRepo) UpdateAmounts(ctx context.Context, b *entity.Balance, expectedVersion int64) error {
	query := `
		UPDATE budget_balances
		SET total_cents = $1, available_cents = $2, version = version + 1, updated_at = now()
		WHERE centro = $3 AND sector = $4 AND version = $5`
	tag, err := r.q.Exec(ctx, query, b.TotalCents, b.AvailableCents, b.Centro, b.Sector, expectedVersion)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	b.Version = expectedVersion + 1
	return nil
}

// ListByCentro lista los saldos de un centro ordenados por sector.
func (r *BalanceRepo) ListByCentro(ctx context.Context, centro string, limit, offset int) ([]*entity.Balance, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM budget_balances WHERE centro = $1
		ORDER BY sector LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, centro, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()
	var list []*entity.Balance
	for rows.Next() {
		var b entity.Balance
		if err := rows.Scan(&b.Centro, &b.Sector, &b.TotalCents, &b.AvailableCents, &b.Version, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
