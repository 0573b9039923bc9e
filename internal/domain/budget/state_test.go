package budget_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

func newBur(requiredLevel, state string) *entity.BudgetUpdateRequest {
	return &entity.BudgetUpdateRequest{
		ID:                   "bur-1",
		Centro:               "bogota",
		Sector:               "mantenimiento",
		RequestedAmountCents: 5_000_000,
		RequiredLevel:        requiredLevel,
		State:                state,
	}
}

func approval(level, decision string) entity.Approval {
	return entity.Approval{
		ApproverID: "user-1",
		Role:       "jefe",
		Level:      level,
		Decision:   decision,
		Timestamp:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// Una BUR L1 queda APPROVED con una sola aprobación L1.
func TestApplyApproval_L1_UnaAprobacionBasta(t *testing.T) {
	bur := newBur(entity.LevelL1, entity.BurPending)

	state, err := budget.ApplyApproval(bur, approval(entity.LevelL1, entity.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApproved, state)
	assert.Equal(t, entity.BurApproved, bur.State)
	assert.Len(t, bur.Approvals, 1)
	assert.True(t, bur.IsTerminal())
}

// Una BUR L2 exige el escalón L1 antes del L2.
func TestApplyApproval_L2_CadenaCompleta(t *testing.T) {
	bur := newBur(entity.LevelL2, entity.BurPending)

	state, err := budget.ApplyApproval(bur, approval(entity.LevelL1, entity.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApprovedL1, state)
	assert.False(t, bur.IsTerminal())

	state, err = budget.ApplyApproval(bur, approval(entity.LevelL2, entity.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApproved, state)
	assert.Len(t, bur.Approvals, 2)
}

// Una L2 llegada antes del escalón L1 es fuera de orden y no muta la BUR.
func TestApplyApproval_L2AntesDeL1_FueraDeOrden(t *testing.T) {
	bur := newBur(entity.LevelL2, entity.BurPending)

	state, err := budget.ApplyApproval(bur, approval(entity.LevelL2, entity.DecisionApprove))
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)
	assert.Equal(t, entity.BurPending, state)
	assert.Equal(t, entity.BurPending, bur.State, "en error la BUR queda intacta")
	assert.Empty(t, bur.Approvals)
}

// Una L1 repetida sobre APPROVED_L1 también es fuera de orden.
func TestApplyApproval_L1Repetida_FueraDeOrden(t *testing.T) {
	bur := newBur(entity.LevelL2, entity.BurApprovedL1)

	_, err := budget.ApplyApproval(bur, approval(entity.LevelL1, entity.DecisionApprove))
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)
	assert.Equal(t, entity.BurApprovedL1, bur.State)
}

// El cortocircuito ADMIN finaliza cualquier BUR no terminal de inmediato.
func TestApplyApproval_AdminCortocircuito(t *testing.T) {
	for _, from := range []string{entity.BurPending, entity.BurApprovedL1, entity.BurApprovedL2} {
		bur := newBur(entity.LevelAdmin, from)
		state, err := budget.ApplyApproval(bur, approval(entity.LevelAdmin, entity.DecisionApprove))
		require.NoError(t, err, "desde %s", from)
		assert.Equal(t, entity.BurApproved, state)
	}
}

// Una BUR ADMIN acepta L1 → L2 pero solo ADMIN la finaliza.
func TestApplyApproval_NivelAdmin_EscalaSinFinalizar(t *testing.T) {
	bur := newBur(entity.LevelAdmin, entity.BurPending)

	state, err := budget.ApplyApproval(bur, approval(entity.LevelL1, entity.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApprovedL1, state)

	state, err = budget.ApplyApproval(bur, approval(entity.LevelL2, entity.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApprovedL2, state)

	// Con los dos escalones puestos, otro L2 sobra.
	_, err = budget.ApplyApproval(bur, approval(entity.LevelL2, entity.DecisionApprove))
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	state, err = budget.ApplyApproval(bur, approval(entity.LevelAdmin, entity.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApproved, state)
}

// El rechazo es terminal desde cualquier estado no terminal.
func TestApplyApproval_RechazoEsTerminal(t *testing.T) {
	for _, from := range []string{entity.BurPending, entity.BurApprovedL1, entity.BurApprovedL2} {
		bur := newBur(entity.LevelAdmin, from)
		state, err := budget.ApplyApproval(bur, approval(entity.LevelL1, entity.DecisionReject))
		require.NoError(t, err, "desde %s", from)
		assert.Equal(t, entity.BurRejected, state)
		assert.True(t, bur.IsTerminal())
	}
}

// Sobre un estado terminal no se acepta ninguna decisión más.
func TestApplyApproval_TerminalRechazaTodo(t *testing.T) {
	for _, terminal := range []string{entity.BurApproved, entity.BurRejected} {
		bur := newBur(entity.LevelL1, terminal)
		state, err := budget.ApplyApproval(bur, approval(entity.LevelAdmin, entity.DecisionApprove))
		assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
		assert.Equal(t, terminal, state, "el estado nunca retrocede")
		assert.Empty(t, bur.Approvals)

		_, err = budget.ApplyApproval(bur, approval(entity.LevelL1, entity.DecisionReject))
		assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	}
}

// Un nivel mayor al requerido por la BUR no entra por la escalera normal.
func TestApplyApproval_NivelMayorAlRequerido(t *testing.T) {
	bur := newBur(entity.LevelL1, entity.BurPending)

	_, err := budget.ApplyApproval(bur, approval(entity.LevelL2, entity.DecisionApprove))
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)
	assert.Equal(t, entity.BurPending, bur.State)
}
