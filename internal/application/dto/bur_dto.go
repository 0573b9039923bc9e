package dto

import "time"

// CreateBurRequest creación de una solicitud de actualización de presupuesto.
type CreateBurRequest struct {
	Centro        string `json:"centro"`
	Sector        string `json:"sector"`
	AmountCents   int64  `json:"amount_cents"`
	Justification string `json:"justification"`
}

// BurDecisionRequest aprobación o rechazo de una BUR.
type BurDecisionRequest struct {
	Comment string `json:"comment,omitempty"`
}

// ApprovalResponse eslabón de la cadena de aprobaciones.
type ApprovalResponse struct {
	ApproverID string    `json:"approver_id"`
	Role       string    `json:"role"`
	Level      string    `json:"level"`
	Decision   string    `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// BurResponse representación completa de una BUR.
type BurResponse struct {
	ID              string             `json:"id"`
	Centro          string             `json:"centro"`
	Sector          string             `json:"sector"`
	AmountCents     int64              `json:"amount_cents"`
	AmountDisplay   string             `json:"amount_display"`
	Justification   string             `json:"justification"`
	RequesterID     string             `json:"requester_id"`
	RequesterRole   string             `json:"requester_role"`
	RequiredLevel   string             `json:"required_level"`
	State           string             `json:"state"`
	Approvals       []ApprovalResponse `json:"approvals"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// BurDecisionResponse resultado de una decisión sobre una BUR.
type BurDecisionResponse struct {
	NewState string            `json:"new_state"`
	Applied  *MovementResponse `json:"applied,omitempty"`
}
