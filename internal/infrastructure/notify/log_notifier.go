package notify

import (
	"context"

	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
	"github.com/jhoicas/Requisiciones-api/pkg/logger"
)

var _ appbudget.Notifier = (*LogNotifier)(nil)

// LogNotifier publica los eventos del flujo presupuestal como logs
// estructurados. Es el despachador por defecto; un transporte real (correo,
// webhook) implementaría la misma interfaz.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el notificador sobre el logger de la app.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// BurTransition registra un cambio de estado de una BUR.
func (n *LogNotifier) BurTransition(_ context.Context, bur *entity.BudgetUpdateRequest, previousState string) {
	n.log.Info().
		Str("bur_id", bur.ID).
		Str("centro", bur.Centro).
		Str("sector", bur.Sector).
		Str("estado_anterior", previousState).
		Str("estado", bur.State).
		Str("nivel_requerido", bur.RequiredLevel).
		Int64("monto_centavos", bur.RequestedAmountCents).
		Msg("transición de BUR")
}

// MovementCommitted registra un movimiento confirmado del libro.
func (n *LogNotifier) MovementCommitted(_ context.Context, entry *entity.LedgerEntry) {
	n.log.Info().
		Str("ledger_id", entry.ID).
		Str("centro", entry.Centro).
		Str("sector", entry.Sector).
		Str("movimiento", entry.Movement).
		Int64("monto_centavos", entry.AmountCents).
		Int64("disponible_antes", entry.BalanceBeforeCents).
		Int64("disponible_despues", entry.BalanceAfterCents).
		Str("referencia", entry.Reference.Kind+":"+entry.Reference.ID).
		Msg("movimiento presupuestal confirmado")
}
