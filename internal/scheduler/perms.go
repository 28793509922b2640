package scheduler

import (
	"context"

	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/store"
)

// PermissionChecker decides whether a user may book or manage a resource.
type PermissionChecker interface {
	CanManage(ctx context.Context, user *model.User, resourceID int64) (bool, error)
}

type storePermissions struct {
	store store.Store
}

// NewStorePermissions returns the checker backed by the resource permission
// table. Admins always pass.
func NewStorePermissions(st store.Store) PermissionChecker {
	return &storePermissions{store: st}
}

func (p *storePermissions) CanManage(ctx context.Context, user *model.User, resourceID int64) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}
	return p.store.HasPermission(ctx, user.ID, resourceID)
}
