package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Se comparan con errors.Is.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Motor presupuestal.
	ErrInvalidAmount          = errors.New("monto inválido")
	ErrBalanceNotFound        = errors.New("saldo presupuestal no encontrado")
	ErrInsufficientBalance    = errors.New("saldo presupuestal insuficiente")
	ErrConsumoNotFound        = errors.New("consumo previo no encontrado para la referencia")
	ErrConcurrentModification = errors.New("modificación concurrente del saldo")
	ErrLockTimeout            = errors.New("tiempo de espera agotado adquiriendo el bloqueo del saldo")

	// Flujo BUR (solicitudes de actualización de presupuesto).
	ErrBurNotFound      = errors.New("solicitud de actualización no encontrada")
	ErrAlreadyTerminal  = errors.New("la solicitud ya está en estado terminal")
	ErrOutOfOrder       = errors.New("aprobación fuera de orden")
	ErrInsufficientRole = errors.New("rol insuficiente para la operación")
)

// InsufficientBalanceError detalla el faltante de un consumo rechazado.
// Envuelve ErrInsufficientBalance para que errors.Is siga funcionando.
type InsufficientBalanceError struct {
	Centro         string
	Sector         string
	AvailableCents int64
	RequestedCents int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%v: centro=%s sector=%s disponible=%d solicitado=%d faltan=%d",
		ErrInsufficientBalance, e.Centro, e.Sector, e.AvailableCents, e.RequestedCents, e.DeficitCents())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// DeficitCents devuelve cuántos centavos faltaron para cubrir la operación.
func (e *InsufficientBalanceError) DeficitCents() int64 {
	return e.RequestedCents - e.AvailableCents
}

// InsufficientRoleError detalla qué nivel se exigía y qué roles tenía el actor.
type InsufficientRoleError struct {
	RequiredLevel string
	HeldRoles     []string
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("%v: nivel requerido=%s roles=%v", ErrInsufficientRole, e.RequiredLevel, e.HeldRoles)
}

func (e *InsufficientRoleError) Unwrap() error { return ErrInsufficientRole }

// IsRetryable indica si el caller puede reintentar la operación abriendo una
// transacción nueva. Solo aplica a errores de concurrencia; los errores de
// negocio son definitivos.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrLockTimeout)
}
