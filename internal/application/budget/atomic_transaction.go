package budget

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/internal/domain/repository"
)

// AtomicTransaction es el motor de mutaciones del saldo presupuestal. Toda
// operación que mueva dinero entre "disponible" y "consumido" pasa por aquí.
//
// Garantías por llamada exitosa: exactamente una actualización del saldo y
// exactamente un asiento del libro, confirmados como unidad. Cualquier fallo
// antes del commit deja ambos almacenes intactos.
//
// La exclusión por clave la da el SELECT FOR UPDATE de la fila del saldo,
// acotado por lock_timeout (domain.ErrLockTimeout al vencer). La escritura va
// además condicionada a la versión leída (compare-and-swap): cero filas
// afectadas es domain.ErrConcurrentModification, sin mutación. El motor no
// reintenta nada: ConcurrentModification y LockTimeout son reintentables por
// el caller abriendo una transacción nueva.
type AtomicTransaction struct {
	txRunner TxRunner
}

// NewAtomicTransaction construye el motor. Se inyecta una instancia por
// proceso; cada llamada abre su propia transacción.
func NewAtomicTransaction(txRunner TxRunner) *AtomicTransaction {
	return &AtomicTransaction{txRunner: txRunner}
}

// MovementResult es el resultado de una mutación confirmada (o reproducida).
type MovementResult struct {
	LedgerID           string
	BalanceBeforeCents int64
	BalanceAfterCents  int64
	// Replayed indica que la clave de idempotencia ya estaba aplicada y se
	// devolvió el resultado original sin mutar nada.
	Replayed bool
	// Entry es el asiento confirmado (o el original, en un replay). Lo usa el
	// orquestador para el despacho de notificaciones después del commit.
	Entry *entity.LedgerEntry
}

// ConsumeInput entrada para consumir presupuesto al aprobar una requisición.
type ConsumeInput struct {
	Centro      string
	Sector      string
	AmountCents int64
	Reference   entity.Reference
	// IdempotencyKey es opcional; si viene vacía se deriva de (movimiento,
	// referencia) con budget.IdempotencyKey.
	IdempotencyKey string
	Reason         string
	Ctx            budget.TransactionContext
}

// ConsumeBudget debita AmountCents del disponible de (centro, sector).
// Errores definitivos: ErrInvalidAmount, ErrBalanceNotFound,
// InsufficientBalanceError. Reintentables: ErrConcurrentModification,
// ErrLockTimeout. El reintento con la misma clave devuelve el resultado
// original sin doble débito.
func (t *AtomicTransaction) ConsumeBudget(ctx context.Context, in ConsumeInput) (*MovementResult, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	key := in.IdempotencyKey
	if key == "" {
		key = budget.IdempotencyKey(entity.MovementConsumption, in.Reference)
	}

	var result *MovementResult
	err := t.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, ledgerRepo repository.LedgerRepository) error {
		// El bloqueo exclusivo de la clave se adquiere antes de cualquier
		// lectura de negocio: primero la fila del saldo, luego el replay.
		bal, err := balanceRepo.GetForUpdate(ctx, in.Centro, in.Sector)
		if err != nil {
			return err
		}
		if prev, err := replay(ctx, ledgerRepo, key); prev != nil || err != nil {
			result = prev
			return err
		}
		if bal == nil {
			return domain.ErrBalanceNotFound
		}
		if bal.AvailableCents < in.AmountCents {
			return &domain.InsufficientBalanceError{
				Centro:         in.Centro,
				Sector:         in.Sector,
				AvailableCents: bal.AvailableCents,
				RequestedCents: in.AmountCents,
			}
		}

		before := bal.AvailableCents
		version := bal.Version
		bal.AvailableCents = before - in.AmountCents
		if err := balanceRepo.UpdateAmounts(ctx, bal, version); err != nil {
			return err
		}

		entry := newEntry(key, bal, entity.MovementConsumption, -in.AmountCents, before, in.Reference, in.Reason, in.Ctx)
		if err := appendEntry(ctx, ledgerRepo, entry); err != nil {
			return err
		}
		result = resultOf(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReverseInput entrada para reversar un consumo previo.
type ReverseInput struct {
	Centro      string
	Sector      string
	AmountCents int64
	Reference   entity.Reference
	Reason      string
	Ctx         budget.TransactionContext
}

// ReverseConsumption acredita AmountCents al disponible, exigiendo que exista
// un consumo previo para la misma referencia (ErrConsumoNotFound si no). El
// crédito no puede superar el monto del consumo referenciado ni dejar el
// disponible por encima del total. La clave se deriva de la referencia: hay a
// lo sumo una reversa efectiva por referencia, el resto son replays.
func (t *AtomicTransaction) ReverseConsumption(ctx context.Context, in ReverseInput) (*MovementResult, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	key := budget.IdempotencyKey(entity.MovementReversal, in.Reference)

	var result *MovementResult
	err := t.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, ledgerRepo repository.LedgerRepository) error {
		bal, err := balanceRepo.GetForUpdate(ctx, in.Centro, in.Sector)
		if err != nil {
			return err
		}
		if prev, err := replay(ctx, ledgerRepo, key); prev != nil || err != nil {
			result = prev
			return err
		}
		if bal == nil {
			return domain.ErrBalanceNotFound
		}
		consumo, err := ledgerRepo.GetByReference(ctx, entity.MovementConsumption, in.Reference)
		if err != nil {
			return err
		}
		if consumo == nil {
			return domain.ErrConsumoNotFound
		}
		// El asiento de consumo lleva el débito con signo negativo.
		if in.AmountCents > -consumo.AmountCents {
			return domain.ErrInvalidAmount
		}

		before := bal.AvailableCents
		after := before + in.AmountCents
		if after > bal.TotalCents {
			return domain.ErrInvalidAmount
		}
		version := bal.Version
		bal.AvailableCents = after
		if err := balanceRepo.UpdateAmounts(ctx, bal, version); err != nil {
			return err
		}

		entry := newEntry(key, bal, entity.MovementReversal, in.AmountCents, before, in.Reference, in.Reason, in.Ctx)
		if err := appendEntry(ctx, ledgerRepo, entry); err != nil {
			return err
		}
		result = resultOf(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyBur acredita el monto de una BUR aprobada aumentando total Y disponible
// (a diferencia de consumo/reversa, que solo redistribuyen dentro del total).
// La clave de idempotencia se deriva del ID de la BUR: re-aplicarla es no-op.
func (t *AtomicTransaction) ApplyBur(ctx context.Context, centro, sector string, amountCents int64, burID string, tctx budget.TransactionContext) (*MovementResult, error) {
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var result *MovementResult
	err := t.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, ledgerRepo repository.LedgerRepository) error {
		var err error
		result, err = t.applyBurInTx(ctx, balanceRepo, ledgerRepo, centro, sector, amountCents, burID, tctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyBurInTx ejecuta la aplicación de una BUR con los repositorios del
// caller (misma transacción). Lo usa el flujo de aprobación para confirmar el
// cambio de estado terminal y el crédito al saldo como una sola unidad.
func (t *AtomicTransaction) applyBurInTx(
	ctx context.Context,
	balanceRepo repository.BalanceRepository,
	ledgerRepo repository.LedgerRepository,
	centro, sector string,
	amountCents int64,
	burID string,
	tctx budget.TransactionContext,
) (*MovementResult, error) {
	key := budget.BurIdempotencyKey(burID)

	bal, err := balanceRepo.GetForUpdate(ctx, centro, sector)
	if err != nil {
		return nil, err
	}
	if prev, err := replay(ctx, ledgerRepo, key); prev != nil || err != nil {
		return prev, err
	}
	if bal == nil {
		return nil, domain.ErrBalanceNotFound
	}

	before := bal.AvailableCents
	version := bal.Version
	bal.TotalCents += amountCents
	bal.AvailableCents = before + amountCents
	if err := balanceRepo.UpdateAmounts(ctx, bal, version); err != nil {
		return nil, err
	}

	ref := entity.Reference{Kind: "bur", ID: burID}
	entry := newEntry(key, bal, entity.MovementBurApplied, amountCents, before, ref, "aplicación de BUR aprobada", tctx)
	if err := appendEntry(ctx, ledgerRepo, entry); err != nil {
		return nil, err
	}
	return resultOf(entry), nil
}

// AdjustInput entrada para un ajuste manual (solo administradores).
type AdjustInput struct {
	Centro string
	Sector string
	// AmountCents con signo: positivo acredita total y disponible, negativo
	// los debita. Cero es inválido.
	AmountCents int64
	Reference   entity.Reference
	Reason      string
	Ctx         budget.TransactionContext
}

// ManualAdjustment corrige la asignación de un (centro, sector) moviendo total
// y disponible por el monto con signo. El invariante 0 <= disponible <= total
// se valida antes de escribir.
func (t *AtomicTransaction) ManualAdjustment(ctx context.Context, in AdjustInput) (*MovementResult, error) {
	if in.AmountCents == 0 {
		return nil, domain.ErrInvalidAmount
	}
	key := budget.IdempotencyKey(entity.MovementManualAdjustment, in.Reference)

	var result *MovementResult
	err := t.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, ledgerRepo repository.LedgerRepository) error {
		bal, err := balanceRepo.GetForUpdate(ctx, in.Centro, in.Sector)
		if err != nil {
			return err
		}
		if prev, err := replay(ctx, ledgerRepo, key); prev != nil || err != nil {
			result = prev
			return err
		}
		if bal == nil {
			return domain.ErrBalanceNotFound
		}

		before := bal.AvailableCents
		newTotal := bal.TotalCents + in.AmountCents
		newAvailable := before + in.AmountCents
		if newAvailable < 0 || newTotal < 0 || newAvailable > newTotal {
			return domain.ErrInvalidAmount
		}
		version := bal.Version
		bal.TotalCents = newTotal
		bal.AvailableCents = newAvailable
		if err := balanceRepo.UpdateAmounts(ctx, bal, version); err != nil {
			return err
		}

		entry := newEntry(key, bal, entity.MovementManualAdjustment, in.AmountCents, before, in.Reference, in.Reason, in.Ctx)
		if err := appendEntry(ctx, ledgerRepo, entry); err != nil {
			return err
		}
		result = resultOf(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllocateInput entrada para la asignación inicial de un (centro, sector).
type AllocateInput struct {
	Centro      string
	Sector      string
	AmountCents int64
	Reason      string
	Ctx         budget.TransactionContext
}

// CreateAllocation crea el saldo inicial (total = disponible = monto) y el
// asiento de apertura en una sola transacción. Falla con domain.ErrDuplicate
// si la clave ya tiene asignación.
func (t *AtomicTransaction) CreateAllocation(ctx context.Context, in AllocateInput) (*MovementResult, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	ref := entity.Reference{Kind: "allocation", ID: in.Centro + ":" + in.Sector}
	key := budget.IdempotencyKey(entity.MovementManualAdjustment, ref)

	var result *MovementResult
	err := t.txRunner.Run(ctx, func(balanceRepo repository.BalanceRepository, ledgerRepo repository.LedgerRepository) error {
		if prev, err := replay(ctx, ledgerRepo, key); prev != nil || err != nil {
			result = prev
			return err
		}
		bal := &entity.Balance{
			Centro:         in.Centro,
			Sector:         in.Sector,
			TotalCents:     in.AmountCents,
			AvailableCents: in.AmountCents,
			UpdatedAt:      in.Ctx.At(),
		}
		if err := balanceRepo.Create(ctx, bal); err != nil {
			return err
		}
		entry := newEntry(key, bal, entity.MovementManualAdjustment, in.AmountCents, 0, ref, in.Reason, in.Ctx)
		if err := appendEntry(ctx, ledgerRepo, entry); err != nil {
			return err
		}
		result = resultOf(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replay devuelve el resultado registrado de una clave ya aplicada, o nil.
func replay(ctx context.Context, ledgerRepo repository.LedgerRepository, key string) (*MovementResult, error) {
	prev, err := ledgerRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	r := resultOf(prev)
	r.Replayed = true
	return r, nil
}

func newEntry(key string, bal *entity.Balance, movement string, amountCents, beforeCents int64, ref entity.Reference, reason string, tctx budget.TransactionContext) *entity.LedgerEntry {
	at := tctx.At()
	return &entity.LedgerEntry{
		ID:                 uuid.New().String(),
		IdempotencyKey:     key,
		Centro:             bal.Centro,
		Sector:             bal.Sector,
		Movement:           movement,
		AmountCents:        amountCents,
		BalanceBeforeCents: beforeCents,
		BalanceAfterCents:  beforeCents + amountCents,
		Reference:          ref,
		ActorID:            tctx.ActorID,
		ActorRole:          tctx.ActorRole,
		TraceID:            tctx.TraceID,
		Reason:             reason,
		CreatedAt:          at,
	}
}

// appendEntry agrega el asiento mapeando el choque del índice único de la
// clave de idempotencia a ErrConcurrentModification: otro escritor confirmó la
// misma clave entre el replay y este append.
func appendEntry(ctx context.Context, ledgerRepo repository.LedgerRepository, entry *entity.LedgerEntry) error {
	if err := ledgerRepo.Append(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.ErrConcurrentModification
		}
		return err
	}
	return nil
}

func resultOf(entry *entity.LedgerEntry) *MovementResult {
	return &MovementResult{
		LedgerID:           entry.ID,
		BalanceBeforeCents: entry.BalanceBeforeCents,
		BalanceAfterCents:  entry.BalanceAfterCents,
		Entry:              entry,
	}
}
