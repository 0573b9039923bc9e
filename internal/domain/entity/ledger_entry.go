package entity

import "time"

// Tipos de movimiento del libro presupuestal (value object conceptual).
const (
	MovementConsumption      = "consumption_on_approval" // débito al aprobar una requisición
	MovementReversal         = "reversal_on_rejection"   // crédito al rechazar/anular
	MovementBurApplied       = "bur_applied"             // aumento de presupuesto aprobado
	MovementManualAdjustment = "manual_adjustment"       // ajuste manual de un admin
)

// Reference identifica el documento de negocio que originó un movimiento
// (requisición, BUR, nota de ajuste).
type Reference struct {
	Kind string // "requisition", "bur", "adjustment"
	ID   string
}

// LedgerEntry es un registro inmutable y append-only del libro presupuestal.
// Nunca se actualiza ni se borra; las correcciones se hacen con movimientos
// de reversa. Invariante por fila:
//
//	BalanceAfterCents = BalanceBeforeCents + AmountCents
//
// AmountCents es con signo: negativo debita el disponible, positivo lo acredita.
type LedgerEntry struct {
	ID                 string
	IdempotencyKey     string // único; la misma clave nunca produce dos filas
	Centro             string
	Sector             string
	Movement           string // MovementConsumption, MovementReversal, ...
	AmountCents        int64
	BalanceBeforeCents int64 // disponible antes del movimiento
	BalanceAfterCents  int64 // disponible después del movimiento
	Reference          Reference
	ActorID            string
	ActorRole          string
	TraceID            string
	Reason             string
	CreatedAt          time.Time
}

// CheckInvariant valida la ecuación del asiento.
func (e *LedgerEntry) CheckInvariant() bool {
	return e.BalanceAfterCents == e.BalanceBeforeCents+e.AmountCents
}
