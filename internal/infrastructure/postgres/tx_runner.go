package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

var _ appbudget.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con un
// lock_timeout acotado: una transacción que no consigue el bloqueo de la fila
// del saldo en ese plazo falla con domain.ErrLockTimeout en lugar de colgarse.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool y la espera máxima de bloqueos.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = 30 * time.Second
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, fija el lock_timeout, ejecuta fn con repos
// atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	balanceRepo repository.BalanceRepository,
	ledgerRepo repository.LedgerRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.setLockTimeout(ctx, tx); err != nil {
		return err
	}

	balanceRepo := NewBalanceRepository(tx)
	ledgerRepo := NewLedgerRepository(tx)

	if err := fn(balanceRepo, ledgerRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunBur inicia una transacción con repos de BUR, saldo y libro (para el flujo
// de aprobación, que cambia de estado y aplica el saldo como una unidad).
func (r *TxRunner) RunBur(ctx context.Context, fn func(
	burRepo repository.BurRepository,
	balanceRepo repository.BalanceRepository,
	ledgerRepo repository.LedgerRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.setLockTimeout(ctx, tx); err != nil {
		return err
	}

	burRepo := NewBurRepository(tx)
	balanceRepo := NewBalanceRepository(tx)
	ledgerRepo := NewLedgerRepository(tx)

	if err := fn(burRepo, balanceRepo, ledgerRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *TxRunner) setLockTimeout(ctx context.Context, q Querier) error {
	// SET LOCAL solo vive hasta el final de la transacción.
	_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	return nil
}
