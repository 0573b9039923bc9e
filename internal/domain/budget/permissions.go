package budget

import "github.com/jhoicas/Requisiciones-api/internal/domain/entity"

// Roles reconocidos por el motor presupuestal. La normalización (CSV, arreglo
// JSON, string suelto, mayúsculas, tildes) es responsabilidad del colaborador
// externo (pkg/roles); aquí solo se reciben sets ya normalizados en minúscula.
const (
	RoleAdmin         = "admin"
	RoleAdministrador = "administrador"
	RoleJefe          = "jefe"
	RoleCoordinador   = "coordinador"
	RolePlanificador  = "planificador"
	RoleUsuario       = "usuario"
	RoleViewer        = "viewer"
)

// RoleSet es un conjunto de roles normalizados en minúscula.
type RoleSet map[string]struct{}

// NewRoleSet construye un RoleSet a partir de roles ya normalizados.
func NewRoleSet(roles ...string) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has indica si el set contiene el rol.
func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Slice devuelve los roles del set (orden no garantizado), útil para mensajes.
func (s RoleSet) Slice() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	return out
}

// isAdmin acepta las dos variantes históricas del rol administrador.
func (s RoleSet) isAdmin() bool {
	return s.Has(RoleAdmin) || s.Has(RoleAdministrador)
}

// PermissionGate decide quién puede crear y aprobar BURs. No consulta la base
// de datos: opera únicamente sobre roles ya resueltos y montos.
type PermissionGate struct{}

// NewPermissionGate construye el gate. Se inyecta una sola instancia por proceso.
func NewPermissionGate() *PermissionGate { return &PermissionGate{} }

// MayCreateBur indica si los roles pueden crear una BUR por el monto dado.
// admin/administrador sin tope; jefe solo hasta el techo del nivel L2
// ($1.000.000,00); los demás roles nunca.
func (g *PermissionGate) MayCreateBur(roles RoleSet, amountCents int64) bool {
	if roles.isAdmin() {
		return true
	}
	if roles.Has(RoleJefe) {
		return amountCents <= LevelL2MaxCents
	}
	return false
}

// MayApproveBur indica si los roles pueden aprobar (o rechazar) una BUR cuyo
// nivel requerido es requiredLevel. admin/administrador cualquier nivel;
// jefe y coordinador solo L1; el resto ninguno.
func (g *PermissionGate) MayApproveBur(roles RoleSet, requiredLevel string) bool {
	if roles.isAdmin() {
		return true
	}
	if roles.Has(RoleJefe) || roles.Has(RoleCoordinador) {
		return requiredLevel == entity.LevelL1
	}
	return false
}

// GrantableLevel devuelve el nivel más alto que los roles pueden otorgar en una
// aprobación, o "" si no pueden aprobar nada.
func (g *PermissionGate) GrantableLevel(roles RoleSet) string {
	if roles.isAdmin() {
		return entity.LevelAdmin
	}
	if roles.Has(RoleJefe) || roles.Has(RoleCoordinador) {
		return entity.LevelL1
	}
	return ""
}
