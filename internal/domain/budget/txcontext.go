package budget

import "time"

// TransactionContext atribuye una operación del motor a un actor concreto.
// Es efímero: se incrusta en los asientos del libro y en las aprobaciones,
// pero no se persiste como objeto propio.
type TransactionContext struct {
	TraceID   string
	ActorID   string
	ActorRole string
	ActorIP   string
	Timestamp time.Time
}

// At devuelve el timestamp del contexto, o now si no fue fijado.
func (c TransactionContext) At() time.Time {
	if c.Timestamp.IsZero() {
		return time.Now()
	}
	return c.Timestamp
}
