package entity

import "time"

// Balance representa la asignación presupuestal de un (centro, sector).
// Todos los montos son centavos enteros; nunca punto flotante.
// Invariante: 0 <= AvailableCents <= TotalCents.
// Solo se muta dentro de una transacción atómica; se crea con la asignación
// inicial y nunca se borra.
type Balance struct {
	Centro         string
	Sector         string
	TotalCents     int64
	AvailableCents int64
	Version        int64 // contador monotónico para bloqueo optimista
	UpdatedAt      time.Time
}

// ConsumedCents devuelve la porción ya comprometida del total.
func (b *Balance) ConsumedCents() int64 {
	return b.TotalCents - b.AvailableCents
}

// CheckInvariant valida 0 <= disponible <= total.
func (b *Balance) CheckInvariant() bool {
	return b.AvailableCents >= 0 && b.AvailableCents <= b.TotalCents
}
