package supplier

import (
	"context"
	"testing"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// orderRef stands in for the orders table so reference counting can be exercised.
type orderRef struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SupplierID *uuid.UUID
}

func (orderRef) TableName() string { return "orders" }

func newTestService(t *testing.T) (Service, *gorm.DB) {
	db := dbtest.New(t, &Supplier{}, &orderRef{})
	return NewService(NewGORMRepository(db), zap.NewNop()), db
}

func TestSupplierLifecycle(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	sup, err := svc.Create(ctx, CreateSupplierRequest{Name: "Distribuidora Sur", BusinessName: "Distribuidora Sur SpA", RUT: "76.543.210-3"})
	require.NoError(t, err)
	assert.Equal(t, "76543210-3", sup.RUT)

	_, err = svc.Create(ctx, CreateSupplierRequest{Name: "Otra", BusinessName: "Otra Ltda", RUT: "76543210-3"})
	assert.ErrorIs(t, err, common.ErrConflict)

	same, err := svc.FindOrCreateByRUT(ctx, CreateSupplierRequest{Name: "Ignored", BusinessName: "Ignored", RUT: "76543210-3"})
	require.NoError(t, err)
	assert.Equal(t, sup.ID, same.ID)
	assert.Equal(t, "Distribuidora Sur", same.Name)

	created, err := svc.FindOrCreateByRUT(ctx, CreateSupplierRequest{Name: "Nuevo", BusinessName: "Nuevo SA", RUT: "11111111-1"})
	require.NoError(t, err)
	assert.NotEqual(t, sup.ID, created.ID)

	list, total, err := svc.List(ctx, ListQuery{Search: "sur"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	require.NoError(t, db.Create(&orderRef{ID: uuid.New(), SupplierID: &sup.ID}).Error)
	assert.ErrorIs(t, svc.Delete(ctx, sup.ID), common.ErrConflict)
	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
