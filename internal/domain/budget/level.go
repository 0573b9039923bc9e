package budget

import "github.com/jhoicas/Requisiciones-api/internal/domain/entity"

// Umbrales de aprobación en centavos. Inclusivos en el nivel inferior:
// exactamente $200.000,00 sigue siendo L1 y exactamente $1.000.000,00 sigue
// siendo L2.
const (
	LevelL1MaxCents = 20_000_000  // $200.000,00
	LevelL2MaxCents = 100_000_000 // $1.000.000,00
)

// ResolveApprovalLevel devuelve el nivel de aprobación que exige una BUR según
// el monto solicitado. Función pura, total y monótona: a mayor monto nunca
// corresponde un nivel menor.
func ResolveApprovalLevel(amountCents int64) string {
	switch {
	case amountCents <= LevelL1MaxCents:
		return entity.LevelL1
	case amountCents <= LevelL2MaxCents:
		return entity.LevelL2
	default:
		return entity.LevelAdmin
	}
}

// levelRank ordena los niveles para comparaciones de capacidad.
func levelRank(level string) int {
	switch level {
	case entity.LevelL1:
		return 1
	case entity.LevelL2:
		return 2
	case entity.LevelAdmin:
		return 3
	}
	return 0
}
