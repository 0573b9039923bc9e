package entity

import "time"

// Niveles de aprobación para una BUR según el monto solicitado.
const (
	LevelL1    = "L1"
	LevelL2    = "L2"
	LevelAdmin = "ADMIN"
)

// Estados de una BUR. Las transiciones son monotónicas: nunca hacia atrás.
const (
	BurPending    = "PENDING"
	BurApprovedL1 = "APPROVED_L1"
	BurApprovedL2 = "APPROVED_L2"
	BurApproved   = "APPROVED" // terminal; dispara exactamente una aplicación al saldo
	BurRejected   = "REJECTED" // terminal
)

// Decisiones registradas en la cadena de aprobaciones.
const (
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
)

// Approval es un eslabón de la cadena ordenada de aprobaciones de una BUR.
type Approval struct {
	ApproverID string
	Role       string
	Level      string // L1, L2 o ADMIN: el nivel con el que se otorgó
	Decision   string
	Comment    string
	Timestamp  time.Time
}

// BudgetUpdateRequest (BUR) es una solicitud de aumento del presupuesto total
// de un (centro, sector). El nivel de aprobación requerido se fija al crearla
// y no cambia aunque cambien los umbrales después.
type BudgetUpdateRequest struct {
	ID                   string
	Centro               string
	Sector               string
	RequestedAmountCents int64
	Justification        string
	RequesterID          string
	RequesterRole        string
	RequiredLevel        string // LevelL1, LevelL2 o LevelAdmin
	State                string
	Approvals            []Approval
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsTerminal indica si la BUR ya no admite más decisiones.
func (b *BudgetUpdateRequest) IsTerminal() bool {
	return b.State == BurApproved || b.State == BurRejected
}
