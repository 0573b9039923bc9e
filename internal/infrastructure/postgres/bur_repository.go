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

var _ repository.BurRepository = (*BurRepo)(nil)

// BurRepo implementación de BurRepository sobre PostgreSQL. La cadena de
// aprobaciones vive en bur_approvals, ordenada por su serial.
type BurRepo struct {
	q Querier
}

// NewBurRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBurRepository(q Querier) *BurRepo {
	return &BurRepo{q: q}
}

const burColumns = `
	id, centro, sector, requested_amount_cents, justification,
	requester_id, requester_role, required_level, state, created_at, updated_at`

// Create persiste una BUR nueva en estado PENDING.
func (r *BurRepo) Create(ctx context.Context, bur *entity.BudgetUpdateRequest) error {
	query := `
		INSERT INTO budget_update_requests (` + burColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		bur.ID, bur.Centro, bur.Sector, bur.RequestedAmountCents, bur.Justification,
		bur.RequesterID, bur.RequesterRole, bur.RequiredLevel, bur.State,
		bur.CreatedAt, bur.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create bur: %w", err)
	}
	return nil
}

// GetByID obtiene una BUR con su cadena de aprobaciones. Devuelve nil si no existe.
func (r *BurRepo) GetByID(ctx context.Context, id string) (*entity.BudgetUpdateRequest, error) {
	query := `SELECT ` + burColumns + ` FROM budget_update_requests WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate obtiene la BUR bloqueando su fila (SELECT FOR UPDATE) para
// que dos decisiones concurrentes no partan del mismo estado.
func (r *BurRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.BudgetUpdateRequest, error) {
	query := `SELECT ` + burColumns + ` FROM budget_update_requests WHERE id = $1 FOR UPDATE`
	bur, err := r.getOne(ctx, query, id)
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, err
	}
	return bur, nil
}

func (r *BurRepo) getOne(ctx context.Context, query string, id string) (*entity.BudgetUpdateRequest, error) {
	var b entity.BudgetUpdateRequest
	err := r.q.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Centro, &b.Sector, &b.RequestedAmountCents, &b.Justification,
		&b.RequesterID, &b.RequesterRole, &b.RequiredLevel, &b.State,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bur: %w", err)
	}
	approvals, err := r.listApprovals(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Approvals = approvals
	return &b, nil
}

func (r *BurRepo) listApprovals(ctx context.Context, burID string) ([]entity.Approval, error) {
	query := `
		SELECT approver_id, role, level, decision, comment, created_at
		FROM bur_approvals WHERE bur_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, burID)
	if err != nil {
		return nil, fmt.Errorf("list bur approvals: %w", err)
	}
	defer rows.Close()
	var list []entity.Approval
	for rows.Next() {
		var a entity.Approval
		if err := rows.Scan(&a.ApproverID, &a.Role, &a.Level, &a.Decision, &a.Comment, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan bur approval: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// UpdateState avanza el estado de la BUR y agrega la decisión a la cadena. El
// WHERE exige que el estado en la fila no sea terminal: el estado nunca
// retrocede aunque dos procesos pisen la misma BUR.
func (r *BurRepo) UpdateState(ctx context.Context, bur *entity.BudgetUpdateRequest, approval entity.Approval) error {
	query := `
		UPDATE budget_update_requests
		SET state = $1, updated_at = $2
		WHERE id = $3 AND state NOT IN ($4, $5)`
	tag, err := r.q.Exec(ctx, query, bur.State, bur.UpdatedAt, bur.ID, entity.BurApproved, entity.BurRejected)
	if err != nil {
		return fmt.Errorf("update bur state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyTerminal
	}

	insert := `
		INSERT INTO bur_approvals (bur_id, approver_id, role, level, decision, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.q.Exec(ctx, insert,
		bur.ID, approval.ApproverID, approval.Role, approval.Level,
		approval.Decision, approval.Comment, approval.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append bur approval: %w", err)
	}
	return nil
}

// ListByCentro lista BURs de un centro, opcionalmente filtradas por estado,
// más recientes primero.
func (r *BurRepo) ListByCentro(ctx context.Context, centro string, state string, limit, offset int) ([]*entity.BudgetUpdateRequest, error) {
	query := `SELECT ` + burColumns + ` FROM budget_update_requests WHERE centro = $1`
	args := []any{centro}
	pos := 2
	if state != "" {
		query += fmt.Sprintf(" AND state = $%d", pos)
		args = append(args, state)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list burs: %w", err)
	}
	defer rows.Close()
	var list []*entity.BudgetUpdateRequest
	for rows.Next() {
		var b entity.BudgetUpdateRequest
		if err := rows.Scan(
			&b.ID, &b.Centro, &b.Sector, &b.RequestedAmountCents, &b.Justification,
			&b.RequesterID, &b.RequesterRole, &b.RequiredLevel, &b.State,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bur: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
