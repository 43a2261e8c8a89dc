// File: internal/common/roles.go
package common

// Role names as stored on users and carried in access tokens.
const (
	RoleAdmin    = "admin"
	RoleBodega   = "bodega"
	RoleSucursal = "sucursal"
	RoleCourier  = "transportista"
)

// AllRoles lists every role understood by the API.
var AllRoles = []string{RoleAdmin, RoleBodega, RoleSucursal, RoleCourier}

// IsValidRole reports whether r is one of AllRoles.
func IsValidRole(r string) bool {
	for _, role := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// RequiresWarehouse reports whether users of the role are bound to a warehouse.
func RequiresWarehouse(role string) bool {
	return role == RoleBodega || role == RoleCourier
}

// RequiresBranch reports whether users of the role are bound to a branch.
func RequiresBranch(role string) bool {
	return role == RoleSucursal
}

var roleLabels = map[string]string{
	RoleAdmin:    "Administrador",
	RoleBodega:   "Encargado de bodega",
	RoleSucursal: "Encargado de sucursal",
	RoleCourier:  "Transportista",
}

// RoleLabel returns the job title printed on documents for a role.
func RoleLabel(role string) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return role
}
