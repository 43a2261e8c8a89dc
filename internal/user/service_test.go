package user

import (
	"context"
	"errors"
	"testing"

	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc       Service
	repo      Repository
	warehouse *location.Warehouse
	branch    *location.Branch
}

func setupUserService(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t, &location.Warehouse{}, &location.Branch{}, &User{})
	locations := location.NewService(location.NewGORMRepository(db), zap.NewNop())

	ctx := context.Background()
	w, err := locations.CreateWarehouse(ctx, location.CreateWarehouseRequest{Name: "Bodega", Address: "Calle 1", RUT: "11111111-1"})
	require.NoError(t, err)
	b, err := locations.CreateBranch(ctx, location.CreateBranchRequest{Name: "Centro", Address: "Calle 2", RUT: "22222222-2", WarehouseID: w.ID})
	require.NoError(t, err)

	repo := NewGORMRepository(db)
	return fixture{
		svc:       NewService(repo, locations, database.NewTransactor(db), zap.NewNop()),
		repo:      repo,
		warehouse: w,
		branch:    b,
	}
}

func TestCreateGeneratesTemporaryPassword(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	u, temporary, err := f.svc.Create(ctx, CreateUserRequest{
		Name: "Ana Pérez", Email: "Ana@Example.com", RUT: "12.345.678-5", Role: common.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Len(t, temporary, temporaryPasswordLength)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "12345678-5", u.RUT)
	assert.True(t, CheckPasswordHash(temporary, u.PasswordHash))

	_, err = f.svc.Authenticate(ctx, "ANA@example.com", temporary)
	assert.NoError(t, err)
}

func TestRoleLocationInvariants(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		role      string
		warehouse *uuid.UUID
		branch    *uuid.UUID
		ok        bool
	}{
		{"bodega needs warehouse", common.RoleBodega, nil, nil, false},
		{"bodega with warehouse", common.RoleBodega, &f.warehouse.ID, nil, true},
		{"courier with branch", common.RoleCourier, &f.warehouse.ID, &f.branch.ID, false},
		{"sucursal with branch", common.RoleSucursal, nil, &f.branch.ID, true},
		{"sucursal with warehouse", common.RoleSucursal, &f.warehouse.ID, nil, false},
		{"admin with branch", common.RoleAdmin, nil, &f.branch.ID, false},
	}
	ruts := []string{"33333333-3", "44444444-4", "55555555-5", "66666666-6", "77777777-7", "12345678-5"}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.Create(ctx, CreateUserRequest{
				Name: "Usuario", Email: uuid.NewString() + "@ordena.cl", Password: "secret123",
				RUT: ruts[i], Role: tc.role, WarehouseID: tc.warehouse, BranchID: tc.branch,
			})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
		})
	}
}

func TestRegisterRejectsAdmin(t *testing.T) {
	f := setupUserService(t)
	_, err := f.svc.Register(context.Background(), CreateUserRequest{
		Name: "Root", Email: "root@ordena.cl", Password: "secret123", RUT: "11111111-1", Role: common.RoleAdmin,
	})
	assert.True(t, errors.Is(err, common.ErrForbidden))
}

func TestAuthenticateRejectsInactiveWithSameError(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	u, _, err := f.svc.Create(ctx, CreateUserRequest{
		Name: "Bodeguero", Email: "bodega@ordena.cl", Password: "secret123", RUT: "33333333-3",
		Role: common.RoleBodega, WarehouseID: &f.warehouse.ID,
	})
	require.NoError(t, err)

	_, wrongPassword := f.svc.Authenticate(ctx, "bodega@ordena.cl", "nope-nope")
	require.NoError(t, f.svc.Deactivate(ctx, u.ID))
	_, inactive := f.svc.Authenticate(ctx, "bodega@ordena.cl", "secret123")
	_, unknown := f.svc.Authenticate(ctx, "ghost@ordena.cl", "secret123")

	for _, err := range []error{wrongPassword, inactive, unknown} {
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, common.ErrUnauthorized.Code, apiErr.Code)
		assert.Equal(t, "Invalid email or password.", apiErr.Details)
	}
}

func TestLastAdminCannotBeDeactivated(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	admin, _, err := f.svc.Create(ctx, CreateUserRequest{Name: "Admin", Email: "a@ordena.cl", RUT: "11111111-1", Role: common.RoleAdmin})
	require.NoError(t, err)

	err = f.svc.Deactivate(ctx, admin.ID)
	assert.True(t, errors.Is(err, common.ErrConflict))

	demote := common.RoleBodega
	_, err = f.svc.Update(ctx, admin.ID, UpdateUserRequest{Role: &demote, WarehouseID: &f.warehouse.ID})
	assert.True(t, errors.Is(err, common.ErrConflict))

	_, _, err = f.svc.Create(ctx, CreateUserRequest{Name: "Admin Dos", Email: "b@ordena.cl", RUT: "22222222-2", Role: common.RoleAdmin})
	require.NoError(t, err)
	assert.NoError(t, f.svc.Deactivate(ctx, admin.ID))
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	u, _, err := f.svc.Create(ctx, CreateUserRequest{
		Name: "Sucursal", Email: "s@ordena.cl", Password: "secret123", RUT: "44444444-4",
		Role: common.RoleSucursal, BranchID: &f.branch.ID,
	})
	require.NoError(t, err)

	empty, name := "", "Sucursal Centro"
	updated, err := f.svc.Update(ctx, u.ID, UpdateUserRequest{Password: &empty, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Sucursal Centro", updated.Name)
	assert.True(t, CheckPasswordHash("secret123", updated.PasswordHash))
}

func TestListScopesWarehouseStaffToEmployees(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	staff, _, err := f.svc.Create(ctx, CreateUserRequest{
		Name: "Jefe Bodega", Email: "jefe@ordena.cl", Password: "secret123", RUT: "33333333-3",
		Role: common.RoleBodega, WarehouseID: &f.warehouse.ID,
	})
	require.NoError(t, err)
	_, _, err = f.svc.Create(ctx, CreateUserRequest{
		Name: "Vendedor", Email: "v@ordena.cl", Password: "secret123", RUT: "44444444-4",
		Role: common.RoleSucursal, BranchID: &f.branch.ID,
	})
	require.NoError(t, err)
	_, _, err = f.svc.Create(ctx, CreateUserRequest{Name: "Admin", Email: "adm@ordena.cl", RUT: "55555555-5", Role: common.RoleAdmin})
	require.NoError(t, err)

	actor := shared.Actor{UserID: staff.ID, Role: common.RoleBodega, WarehouseID: &f.warehouse.ID}
	users, total, err := f.svc.List(ctx, actor, ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	_, _, err = f.svc.List(ctx, shared.Actor{Role: common.RoleSucursal, BranchID: &f.branch.ID}, ListQuery{})
	assert.True(t, errors.Is(err, common.ErrForbidden))
}

func TestRehashLegacyPasswords(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	legacy := &User{Name: "Legacy", Email: "legacy@ordena.cl", RUT: "66666666-6", Role: common.RoleAdmin, PasswordHash: "plaintext", Active: true}
	require.NoError(t, f.repo.Create(ctx, legacy))

	n, err := f.svc.RehashLegacyPasswords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Authenticate(ctx, "legacy@ordena.cl", "plaintext")
	require.NoError(t, err)
	assert.True(t, IsBcryptHash(got.PasswordHash))
}

func TestRecipientDirectory(t *testing.T) {
	f := setupUserService(t)
	ctx := context.Background()

	token := "device-1"
	staff, _, err := f.svc.Create(ctx, CreateUserRequest{
		Name: "Bodega Uno", Email: "b1@ordena.cl", Password: "secret123", RUT: "33333333-3",
		Role: common.RoleBodega, WarehouseID: &f.warehouse.ID,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.SetDeviceToken(ctx, staff.ID, token))

	dir := NewRecipientDirectory(f.repo)
	recipients, err := dir.WarehouseStaff(ctx, f.warehouse.ID)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, token, recipients[0].DeviceToken)

	branchStaff, err := dir.BranchStaff(ctx, f.branch.ID)
	require.NoError(t, err)
	assert.Empty(t, branchStaff)
}
