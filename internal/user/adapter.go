package user

import (
	"context"

	"ordena_backend/internal/common"
	"ordena_backend/internal/notification"

	"github.com/google/uuid"
)

// RecipientDirectory adapts the user repository to notification.RecipientResolver.
type RecipientDirectory struct {
	repo Repository
}

var _ notification.RecipientResolver = (*RecipientDirectory)(nil)

// NewRecipientDirectory creates the resolver used by the notification service.
func NewRecipientDirectory(repo Repository) *RecipientDirectory {
	return &RecipientDirectory{repo: repo}
}

// Users returns the active users among ids.
func (d *RecipientDirectory) Users(ctx context.Context, ids []uuid.UUID) ([]notification.Recipient, error) {
	users, err := d.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, u := range users {
		if u.Active {
			active = append(active, u)
		}
	}
	return toRecipients(active), nil
}

// WarehouseStaff returns the active warehouse staff (bodega) of a warehouse.
func (d *RecipientDirectory) WarehouseStaff(ctx context.Context, warehouseID uuid.UUID) ([]notification.Recipient, error) {
	users, err := d.repo.FindActive(ctx, common.RoleBodega, &warehouseID, nil)
	if err != nil {
		return nil, err
	}
	return toRecipients(users), nil
}

// BranchStaff returns the active staff of a branch.
func (d *RecipientDirectory) BranchStaff(ctx context.Context, branchID uuid.UUID) ([]notification.Recipient, error) {
	users, err := d.repo.FindActive(ctx, common.RoleSucursal, nil, &branchID)
	if err != nil {
		return nil, err
	}
	return toRecipients(users), nil
}

func toRecipients(users []User) []notification.Recipient {
	out := make([]notification.Recipient, 0, len(users))
	for _, u := range users {
		r := notification.Recipient{UserID: u.ID}
		if u.DeviceToken != nil {
			r.DeviceToken = *u.DeviceToken
		}
		out = append(out, r)
	}
	return out
}
