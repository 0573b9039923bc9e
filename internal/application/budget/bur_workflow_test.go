package budget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbudget "github.com/jhoicas/Requisiciones-api/internal/application/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain"
	"github.com/jhoicas/Requisiciones-api/internal/domain/budget"
	"github.com/jhoicas/Requisiciones-api/internal/domain/entity"
)

// newWorkflow arma el flujo BUR completo sobre los almacenes en memoria, con
// un saldo inicial para (testCentro, testSector).
func newWorkflow(t *testing.T, totalCents int64) (*appbudget.BurWorkflow, *memStore, *fakeNotifier) {
	t.Helper()
	store := newMemStore()
	runner := &fakeTxRunner{s: store}
	engine := appbudget.NewAtomicTransaction(runner)
	notifier := &fakeNotifier{}
	workflow := appbudget.NewBurWorkflow(
		runner, &fakeBurRepo{s: store}, &fakeBalanceRepo{s: store},
		budget.NewPermissionGate(), engine, notifier,
	)
	_, err := engine.CreateAllocation(context.Background(), appbudget.AllocateInput{
		Centro: testCentro, Sector: testSector, AmountCents: totalCents, Ctx: testCtx(),
	})
	require.NoError(t, err)
	return workflow, store, notifier
}

func createInput(amountCents int64, roles ...string) appbudget.CreateBurInput {
	return appbudget.CreateBurInput{
		Centro:        testCentro,
		Sector:        testSector,
		AmountCents:   amountCents,
		Justification: "ampliación de obra",
		RequesterID:   "user-1",
		RequesterRole: roles[0],
		Roles:         budget.NewRoleSet(roles...),
		Ctx:           testCtx(),
	}
}

func decision(burID string, roles ...string) appbudget.DecisionInput {
	return appbudget.DecisionInput{
		BurID:      burID,
		ApproverID: "approver-1",
		Roles:      budget.NewRoleSet(roles...),
		Ctx:        testCtx(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateBur_JefeCreaConNivelCongelado(t *testing.T) {
	workflow, store, notifier := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(5_000_000, budget.RoleJefe))
	require.NoError(t, err)
	assert.Equal(t, entity.BurPending, bur.State)
	assert.Equal(t, entity.LevelL1, bur.RequiredLevel)
	assert.NotEmpty(t, bur.ID)

	stored, ok := store.burs[bur.ID]
	require.True(t, ok)
	assert.Equal(t, entity.BurPending, stored.State)
	assert.Equal(t, []string{"→PENDING"}, notifier.transitions)
}

func TestCreateBur_MontoGrandeExigeNivelMayor(t *testing.T) {
	workflow, _, _ := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(50_000_000, budget.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, entity.LevelL2, bur.RequiredLevel)

	bur, err = workflow.CreateBur(context.Background(), createInput(500_000_000, budget.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, entity.LevelAdmin, bur.RequiredLevel)
}

func TestCreateBur_RolSinPermiso(t *testing.T) {
	workflow, store, notifier := newWorkflow(t, 100_000)

	cases := []struct {
		name  string
		input appbudget.CreateBurInput
	}{
		{"usuario nunca crea", createInput(1_000, budget.RoleUsuario)},
		{"coordinador nunca crea", createInput(1_000, budget.RoleCoordinador)},
		{"jefe sobre su tope", createInput(budget.LevelL2MaxCents+1, budget.RoleJefe)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := workflow.CreateBur(context.Background(), tc.input)
			assert.ErrorIs(t, err, domain.ErrInsufficientRole)

			var roleErr *domain.InsufficientRoleError
			require.ErrorAs(t, err, &roleErr)
			assert.NotEmpty(t, roleErr.RequiredLevel)
		})
	}
	assert.Empty(t, store.burs, "nada debe persistirse")
	assert.Empty(t, notifier.transitions)
}

func TestCreateBur_SaldoInexistente(t *testing.T) {
	workflow, _, _ := newWorkflow(t, 100_000)

	in := createInput(5_000_000, budget.RoleJefe)
	in.Centro, in.Sector = "medellin", "obras"
	_, err := workflow.CreateBur(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

func TestCreateBur_MontoInvalido(t *testing.T) {
	workflow, _, _ := newWorkflow(t, 100_000)
	for _, amount := range []int64{0, -1} {
		_, err := workflow.CreateBur(context.Background(), createInput(amount, budget.RoleAdmin))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Decisiones
// ──────────────────────────────────────────────────────────────────────────────

// Una BUR L1 aprobada por un coordinador llega a APPROVED y acredita el saldo
// en la misma transacción.
func TestApprove_L1_AplicaElSaldo(t *testing.T) {
	workflow, store, notifier := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(5_000_000, budget.RoleJefe))
	require.NoError(t, err)

	result, err := workflow.Approve(context.Background(), decision(bur.ID, budget.RoleCoordinador))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApproved, result.NewState)
	require.NotNil(t, result.Applied, "el estado terminal dispara la aplicación")
	assert.Equal(t, int64(5_100_000), result.Applied.BalanceAfterCents)

	bal := storedBalance(t, store)
	assert.Equal(t, int64(5_100_000), bal.TotalCents)
	assert.Equal(t, int64(5_100_000), bal.AvailableCents)

	stored := store.burs[bur.ID]
	assert.Equal(t, entity.BurApproved, stored.State)
	require.Len(t, stored.Approvals, 1)
	assert.Equal(t, entity.LevelL1, stored.Approvals[0].Level)

	assert.Contains(t, notifier.transitions, "PENDING→APPROVED")
}

// El nivel requerido manda: un jefe no puede decidir sobre una BUR L2 aunque
// otorgue L1, y la BUR queda intacta.
func TestApprove_JefeRechazadoEnBurL2(t *testing.T) {
	workflow, store, _ := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(50_000_000, budget.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, entity.LevelL2, bur.RequiredLevel)

	_, err = workflow.Approve(context.Background(), decision(bur.ID, budget.RoleJefe))
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)

	var roleErr *domain.InsufficientRoleError
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, entity.LevelL2, roleErr.RequiredLevel)

	stored := store.burs[bur.ID]
	assert.Equal(t, entity.BurPending, stored.State)
	assert.Empty(t, stored.Approvals)
	assert.Equal(t, int64(100_000), storedBalance(t, store).TotalCents, "el saldo no se toca")

	// El administrador sí puede finalizar la misma BUR.
	result, err := workflow.Approve(context.Background(), decision(bur.ID, budget.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApproved, result.NewState)
	assert.Equal(t, int64(50_100_000), storedBalance(t, store).TotalCents)
}

// El administrador cortocircuita cualquier BUR pendiente.
func TestApprove_AdminCortocircuito(t *testing.T) {
	workflow, store, _ := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(500_000_000, budget.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, entity.LevelAdmin, bur.RequiredLevel)

	result, err := workflow.Approve(context.Background(), decision(bur.ID, budget.RoleAdministrador))
	require.NoError(t, err)
	assert.Equal(t, entity.BurApproved, result.NewState)
	require.NotNil(t, result.Applied)
	assert.Equal(t, int64(500_100_000), storedBalance(t, store).TotalCents)
}

func TestReject_EsTerminalYNoAplicaNada(t *testing.T) {
	workflow, store, notifier := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(5_000_000, budget.RoleJefe))
	require.NoError(t, err)

	in := decision(bur.ID, budget.RoleCoordinador)
	in.Comment = "sin soporte presupuestal"
	result, err := workflow.Reject(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, entity.BurRejected, result.NewState)
	assert.Nil(t, result.Applied)

	stored := store.burs[bur.ID]
	assert.Equal(t, entity.BurRejected, stored.State)
	require.Len(t, stored.Approvals, 1)
	assert.Equal(t, "sin soporte presupuestal", stored.Approvals[0].Comment)
	assert.Equal(t, int64(100_000), storedBalance(t, store).TotalCents)
	assert.Contains(t, notifier.transitions, "PENDING→REJECTED")
}

func TestDecide_TerminalYNoEncontrada(t *testing.T) {
	workflow, _, _ := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(5_000_000, budget.RoleJefe))
	require.NoError(t, err)
	_, err = workflow.Approve(context.Background(), decision(bur.ID, budget.RoleAdmin))
	require.NoError(t, err)

	// Sobre una BUR terminal no se decide más.
	_, err = workflow.Approve(context.Background(), decision(bur.ID, budget.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	_, err = workflow.Reject(context.Background(), decision(bur.ID, budget.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)

	_, err = workflow.Approve(context.Background(), decision("no-existe", budget.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrBurNotFound)
}

// El rol sin capacidad de aprobación no decide ni siquiera en L1.
func TestDecide_RolSinCapacidad(t *testing.T) {
	workflow, _, _ := newWorkflow(t, 100_000)

	bur, err := workflow.CreateBur(context.Background(), createInput(5_000_000, budget.RoleJefe))
	require.NoError(t, err)

	_, err = workflow.Approve(context.Background(), decision(bur.ID, budget.RoleUsuario))
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)
	_, err = workflow.Reject(context.Background(), decision(bur.ID, budget.RoleViewer))
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas
// ──────────────────────────────────────────────────────────────────────────────

func TestGetBur_Y_ListBurs(t *testing.T) {
	workflow, _, _ := newWorkflow(t, 100_000)

	created, err := workflow.CreateBur(context.Background(), createInput(5_000_000, budget.RoleJefe))
	require.NoError(t, err)

	got, err := workflow.GetBur(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = workflow.GetBur(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrBurNotFound)

	list, err := workflow.ListBurs(context.Background(), testCentro, entity.BurPending, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = workflow.ListBurs(context.Background(), testCentro, entity.BurRejected, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
