package budget

import (
	"fmt"

	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// IdempotencyKey deriva la clave de idempotencia canónica de un movimiento a
// partir del tipo de movimiento y la referencia de negocio:
//
//	<movimiento>:<ref.kind>:<ref.id>
//
// La derivación es determinística: un reintento del mismo movimiento lógico
// produce la misma clave y por lo tanto choca con el índice único del libro en
// lugar de duplicar el efecto. Dos movimientos distintos sobre la misma
// referencia (consumo y reversa) producen claves distintas porque el tipo de
// movimiento forma parte de la clave.
func IdempotencyKey(movement string, ref entity.Reference) string {
	return fmt.Sprintf("%s:%s:%s", movement, ref.Kind, ref.ID)
}

// BurIdempotencyKey deriva la clave para la aplicación de una BUR aprobada.
// Depende solo del ID de la BUR: re-aplicarla es un no-op.
func BurIdempotencyKey(burID string) string {
	return IdempotencyKey(entity.MovementBurApplied, entity.Reference{Kind: "bur", ID: burID})
}
