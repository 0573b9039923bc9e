package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsumeBudgetRequest consumo de presupuesto al aprobar una requisición.
type ConsumeBudgetRequest struct {
	Centro         string `json:"centro"`
	Sector         string `json:"sector"`
	AmountCents    int64  `json:"amount_cents"`
	RequisitionID  string `json:"requisition_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// ReverseBudgetRequest reversa de un consumo al rechazar/anular la requisición.
type ReverseBudgetRequest struct {
	Centro        string `json:"centro"`
	Sector        string `json:"sector"`
	AmountCents   int64  `json:"amount_cents"`
	RequisitionID string `json:"requisition_id"`
	Reason        string `json:"reason"`
}

// AdjustBudgetRequest ajuste manual (solo admin). AmountCents con signo.
type AdjustBudgetRequest struct {
	Centro      string `json:"centro"`
	Sector      string `json:"sector"`
	AmountCents int64  `json:"amount_cents"`
	ReferenceID string `json:"reference_id"`
	Reason      string `json:"reason"`
}

// AllocateBudgetRequest asignación inicial de un (centro, sector).
type AllocateBudgetRequest struct {
	Centro      string `json:"centro"`
	Sector      string `json:"sector"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

// MovementResponse resultado de una mutación del saldo.
type MovementResponse struct {
	LedgerID           string `json:"ledger_id"`
	BalanceBeforeCents int64  `json:"balance_before_cents"`
	BalanceAfterCents  int64  `json:"balance_after_cents"`
	Replayed           bool   `json:"replayed,omitempty"`
}

// BalanceResponse saldo de un (centro, sector) con montos formateados.
type BalanceResponse struct {
	Centro           string    `json:"centro"`
	Sector           string    `json:"sector"`
	TotalCents       int64     `json:"total_cents"`
	AvailableCents   int64     `json:"available_cents"`
	ConsumedCents    int64     `json:"consumed_cents"`
	TotalDisplay     string    `json:"total_display"`
	AvailableDisplay string    `json:"available_display"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LedgerEntryResponse asiento del libro para listados.
type LedgerEntryResponse struct {
	ID                 string    `json:"id"`
	Movement           string    `json:"movement"`
	AmountCents        int64     `json:"amount_cents"`
	AmountDisplay      string    `json:"amount_display"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	ReferenceKind      string    `json:"reference_kind"`
	ReferenceID        string    `json:"reference_id"`
	ActorID            string    `json:"actor_id"`
	ActorRole          string    `json:"actor_role"`
	Reason             string    `json:"reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// DisplayAmount formatea centavos como monto decimal con dos cifras
// ("150000.00"). Solo presentación: el motor opera siempre en centavos
// enteros.
func DisplayAmount(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
