// File: internal/location/guard.go
package location

import (
	"context"

	"ordena_backend/internal/common"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
)

// BranchFinder loads a branch by id. Service implements it.
type BranchFinder interface {
	GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error)
}

// Guard decides whether an actor may work with data held by a location.
// Warehouse staff reach the branches their warehouse supplies.
type Guard struct {
	branches BranchFinder
}

func NewGuard(branches BranchFinder) *Guard {
	return &Guard{branches: branches}
}

// Authorize returns ErrForbidden unless actor may access loc. An empty
// filter is only open to admins.
func (g *Guard) Authorize(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) error {
	if actor.IsAdmin() {
		return nil
	}
	switch {
	case loc.WarehouseID != nil:
		if actor.CanAccessWarehouse(*loc.WarehouseID) {
			return nil
		}
	case loc.BranchID != nil:
		if actor.BranchID != nil && *actor.BranchID == *loc.BranchID {
			return nil
		}
		if actor.Role == common.RoleBodega {
			b, err := g.branches.GetBranch(ctx, *loc.BranchID)
			if err != nil {
				return err
			}
			if actor.CanAccessBranch(b.ID, b.WarehouseID) {
				return nil
			}
		}
	}
	return common.ErrForbidden.WithDetails("You cannot access data of this location.")
}

// Scope narrows loc to the actor's own location and authorizes the result.
// Admins may pass an empty filter to see everything.
func (g *Guard) Scope(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (shared.LocationFilter, error) {
	loc = loc.ScopeTo(actor)
	if loc.IsEmpty() {
		if actor.IsAdmin() {
			return loc, nil
		}
		return loc, common.ErrForbidden.WithDetails("Your account is not bound to a location.")
	}
	return loc, g.Authorize(ctx, actor, loc)
}

// Require is Scope for operations that need exactly one location.
func (g *Guard) Require(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (shared.LocationFilter, error) {
	loc = loc.ScopeTo(actor)
	if loc.IsEmpty() {
		return loc, common.ErrBadRequest.WithDetails("warehouse_id or branch_id is required.")
	}
	return loc, g.Authorize(ctx, actor, loc)
}
