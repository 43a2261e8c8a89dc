package courier

import (
	"context"
	"testing"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*user.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type orderRef struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourierID *uuid.UUID
}

func (orderRef) TableName() string { return "orders" }

func setup(t *testing.T) (Service, *mockUsers, *gorm.DB) {
	db := dbtest.New(t, &Courier{}, &orderRef{})
	users := new(mockUsers)
	return NewService(NewGORMRepository(db), users, zap.NewNop()), users, db
}

func TestCreateNormalizesPlateAndScopesWarehouse(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	wh := uuid.New()
	other := uuid.New()
	bodega := shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &wh}

	c, err := svc.Create(ctx, bodega, CreateCourierRequest{Name: "Pedro Soto", LicensePlate: "ab-cd 12", WarehouseID: &other})
	require.NoError(t, err)
	assert.Equal(t, "ABCD12", c.LicensePlate)
	assert.Equal(t, wh, c.WarehouseID)
	assert.True(t, c.Active)

	_, err = svc.Create(ctx, shared.Actor{Role: common.RoleAdmin}, CreateCourierRequest{Name: "Sin Bodega", LicensePlate: "BCDF34"})
	assert.ErrorIs(t, err, common.ErrValidation)

	list, err := svc.List(ctx, bodega, ListQuery{WarehouseID: &other})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateFromUser(t *testing.T) {
	svc, users, _ := setup(t)
	ctx := context.Background()
	wh := uuid.New()
	admin := shared.Actor{Role: common.RoleAdmin}

	driver := &user.User{Name: "Juan Perez", Role: common.RoleCourier, WarehouseID: &wh, Active: true}
	driver.ID = uuid.New()
	clerk := &user.User{Name: "Ana", Role: common.RoleSucursal, Active: true}
	clerk.ID = uuid.New()
	users.On("GetByID", mock.Anything, driver.ID).Return(driver, nil)
	users.On("GetByID", mock.Anything, clerk.ID).Return(clerk, nil)

	c, err := svc.CreateFromUser(ctx, admin, FromUserRequest{UserID: driver.ID, LicensePlate: "AB1234"})
	require.NoError(t, err)
	assert.Equal(t, "Juan Perez", c.Name)
	assert.Equal(t, wh, c.WarehouseID)
	require.NotNil(t, c.UserID)
	assert.Equal(t, driver.ID, *c.UserID)

	_, err = svc.CreateFromUser(ctx, admin, FromUserRequest{UserID: driver.ID, LicensePlate: "AB1234"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.CreateFromUser(ctx, admin, FromUserRequest{UserID: clerk.ID, LicensePlate: "AB1234"})
	assert.ErrorIs(t, err, common.ErrUnprocessableEntity)

	otherWh := uuid.New()
	_, err = svc.CreateFromUser(ctx, shared.Actor{Role: common.RoleBodega, WarehouseID: &otherWh}, FromUserRequest{UserID: driver.ID, LicensePlate: "AB1234"})
	assert.ErrorIs(t, err, common.ErrForbidden)
	users.AssertExpectations(t)
}

func TestDeleteDeactivatesWhenReferenced(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()
	wh := uuid.New()
	admin := shared.Actor{Role: common.RoleAdmin}

	used, err := svc.Create(ctx, admin, CreateCourierRequest{Name: "Con Pedidos", LicensePlate: "BBCC11", WarehouseID: &wh})
	require.NoError(t, err)
	unused, err := svc.Create(ctx, admin, CreateCourierRequest{Name: "Sin Pedidos", LicensePlate: "BBCC22", WarehouseID: &wh})
	require.NoError(t, err)
	require.NoError(t, db.Create(&orderRef{ID: uuid.New(), CourierID: &used.ID}).Error)

	res, err := svc.Delete(ctx, admin, used.ID)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)
	stored, err := svc.Get(ctx, used.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	res, err = svc.Delete(ctx, admin, unused.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	_, err = svc.Get(ctx, unused.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
