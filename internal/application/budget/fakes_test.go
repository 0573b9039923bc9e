package budget_test

import (
	"context"
	"sync"

	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de test en memoria. Reproducen el contrato de los adaptadores de
// PostgreSQL: transacciones con rollback, CAS por versión y el índice único de
// la clave de idempotencia. El mutex del runner serializa las transacciones
// completas, igual que lo hace el SELECT FOR UPDATE sobre la fila del saldo.
// ──────────────────────────────────────────────────────────────────────────────

func balanceKey(centro, sector string) string { return centro + "|" + sector }

type memStore struct {
	mu       sync.Mutex
	balances map[string]entity.Balance
	entries  []entity.LedgerEntry
	burs     map[string]entity.BudgetUpdateRequest
}

func newMemStore() *memStore {
	return &memStore{
		balances: make(map[string]entity.Balance),
		burs:     make(map[string]entity.BudgetUpdateRequest),
	}
}

type memSnap struct {
	balances map[string]entity.Balance
	entries  []entity.LedgerEntry
	burs     map[string]entity.BudgetUpdateRequest
}

func (s *memStore) snapshot() memSnap {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn := memSnap{
		balances: make(map[string]entity.Balance, len(s.balances)),
		entries:  append([]entity.LedgerEntry(nil), s.entries...),
		burs:     make(map[string]entity.BudgetUpdateRequest, len(s.burs)),
	}
	for k, v := range s.balances {
		sn.balances[k] = v
	}
	for k, v := range s.burs {
		v.Approvals = append([]entity.Approval(nil), v.Approvals...)
		sn.burs[k] = v
	}
	return sn
}

func (s *memStore) restore(sn memSnap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = sn.balances
	s.entries = sn.entries
	s.burs = sn.burs
}

// ── BalanceRepository ────────────────────────────────────────────────────────

type fakeBalanceRepo struct{ s *memStore }

var _ repository.BalanceRepository = (*fakeBalanceRepo)(nil)

func (r *fakeBalanceRepo) Get(_ context.Context, centro, sector string) (*entity.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[balanceKey(centro, sector)]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *fakeBalanceRepo) GetForUpdate(ctx context.Context, centro, sector string) (*entity.Balance, error) {
	return r.Get(ctx, centro, sector)
}

func (r *fakeBalanceRepo) Create(_ context.Context, b *entity.Balance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := balanceKey(b.Centro, b.Sector)
	if _, dup := r.s.balances[key]; dup {
		return domain.ErrDuplicate
	}
	b.Version = 0
	r.s.balances[key] = *b
	return nil
}

func (r *fakeBalanceRepo) UpdateAmounts(_ context.Context, b *entity.Balance, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := balanceKey(b.Centro, b.Sector)
	stored, ok := r.s.balances[key]
	if !ok || stored.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	b.Version = expectedVersion + 1
	r.s.balances[key] = *b
	return nil
}

func (r *fakeBalanceRepo) ListByCentro(_ context.Context, centro string, limit, offset int) ([]*entity.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Balance
	for _, b := range r.s.balances {
		if b.Centro == centro {
			cp := b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── LedgerRepository ─────────────────────────────────────────────────────────

type fakeLedgerRepo struct{ s *memStore }

var _ repository.LedgerRepository = (*fakeLedgerRepo)(nil)

func (r *fakeLedgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.entries {
		if r.s.entries[i].IdempotencyKey == e.IdempotencyKey {
			return domain.ErrDuplicate
		}
	}
	r.s.entries = append(r.s.entries, *e)
	return nil
}

func (r *fakeLedgerRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.entries {
		if r.s.entries[i].IdempotencyKey == key {
			cp := r.s.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) GetByReference(_ context.Context, movement string, ref entity.Reference) (*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.entries {
		e := r.s.entries[i]
		if e.Movement == movement && e.Reference == ref {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) ListByBalance(_ context.Context, centro, sector string, limit, offset int) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		e := r.s.entries[i]
		if e.Centro == centro && e.Sector == sector {
			out = append(out, &e)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ── BurRepository ────────────────────────────────────────────────────────────

type fakeBurRepo struct{ s *memStore }

var _ repository.BurRepository = (*fakeBurRepo)(nil)

func (r *fakeBurRepo) Create(_ context.Context, bur *entity.BudgetUpdateRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.burs[bur.ID]; dup {
		return domain.ErrDuplicate
	}
	cp := *bur
	cp.Approvals = append([]entity.Approval(nil), bur.Approvals...)
	r.s.burs[bur.ID] = cp
	return nil
}

func (r *fakeBurRepo) GetByID(_ context.Context, id string) (*entity.BudgetUpdateRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.burs[id]
	if !ok {
		return nil, nil
	}
	b.Approvals = append([]entity.Approval(nil), b.Approvals...)
	return &b, nil
}

func (r *fakeBurRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.BudgetUpdateRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeBurRepo) UpdateState(_ context.Context, bur *entity.BudgetUpdateRequest, approval entity.Approval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.burs[bur.ID]
	if !ok || stored.State == entity.BurApproved || stored.State == entity.BurRejected {
		return domain.ErrAlreadyTerminal
	}
	stored.State = bur.State
	stored.UpdatedAt = bur.UpdatedAt
	stored.Approvals = append(stored.Approvals, approval)
	r.s.burs[bur.ID] = stored
	return nil
}

func (r *fakeBurRepo) ListByCentro(_ context.Context, centro string, state string, limit, offset int) ([]*entity.BudgetUpdateRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.BudgetUpdateRequest
	for _, b := range r.s.burs {
		if b.Centro != centro {
			continue
		}
		if state != "" && b.State != state {
			continue
		}
		cp := b
		out = append(out, &cp)
	}
	return out, nil
}

// ── TxRunner ─────────────────────────────────────────────────────────────────

// fakeTxRunner serializa transacciones completas con un mutex y revierte el
// almacén al snapshot inicial cuando fn falla, como un ROLLBACK.
type fakeTxRunner struct {
	s    *memStore
	txMu sync.Mutex
}

var _ appbudget.TxRunner = (*fakeTxRunner)(nil)

func (f *fakeTxRunner) Run(_ context.Context, fn func(repository.BalanceRepository, repository.LedgerRepository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	sn := f.s.snapshot()
	if err := fn(&fakeBalanceRepo{f.s}, &fakeLedgerRepo{f.s}); err != nil {
		f.s.restore(sn)
		return err
	}
	return nil
}

func (f *fakeTxRunner) RunBur(_ context.Context, fn func(repository.BurRepository, repository.BalanceRepository, repository.LedgerRepository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	sn := f.s.snapshot()
	if err := fn(&fakeBurRepo{f.s}, &fakeBalanceRepo{f.s}, &fakeLedgerRepo{f.s}); err != nil {
		f.s.restore(sn)
		return err
	}
	return nil
}

// ── Notifier ─────────────────────────────────────────────────────────────────

type fakeNotifier struct {
	mu          sync.Mutex
	transitions []string // "previo→nuevo" por cada evento de BUR
	movements   []string // IDs de asientos notificados
}

var _ appbudget.Notifier = (*fakeNotifier)(nil)

func (n *fakeNotifier) BurTransition(_ context.Context, bur *entity.BudgetUpdateRequest, previousState string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, previousState+"→"+bur.State)
}

func (n *fakeNotifier) MovementCommitted(_ context.Context, entry *entity.LedgerEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.movements = append(n.movements, entry.ID)
}
