package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resource-reservation-backend/internal/model"
)

// Store defines the database operations shared across the application.
// Transactional flows obtain a tx handle through Transaction and combine it
// with the package-level helpers below.
type Store interface {
	DB() *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	GetResource(ctx context.Context, id int64) (*model.Resource, error)
	ListResources(ctx context.Context) ([]model.Resource, error)

	GetDevice(ctx context.Context, id int64) (*model.Device, error)
	GetDeviceByAPIKey(ctx context.Context, key string) (*model.Device, error)

	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	CurrentOccupying(ctx context.Context, resourceID int64) (*model.Reservation, error)
	DueScheduled(ctx context.Context, now time.Time) ([]model.Reservation, error)
	OverdueActive(ctx context.Context, now time.Time) ([]model.Reservation, error)

	HasPermission(ctx context.Context, userID, resourceID int64) (bool, error)
	PermittedResourceIDs(ctx context.Context, userID int64) ([]int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	var resource model.Resource
	if err := s.db.WithContext(ctx).Preload("Device").First(&resource, id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *gormStore) ListResources(ctx context.Context) ([]model.Resource, error) {
	var resources []model.Resource
	if err := s.db.WithContext(ctx).Preload("Device").Order("id").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

func (s *gormStore) GetDevice(ctx context.Context, id int64) (*model.Device, error) {
	var device model.Device
	if err := s.db.WithContext(ctx).First(&device, id).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *gormStore) GetDeviceByAPIKey(ctx context.Context, key string) (*model.Device, error) {
	var device model.Device
	if err := s.db.WithContext(ctx).Where("api_key = ?", key).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *gormStore) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := s.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *gormStore) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).Model(&model.Reservation{})
	if f.ResourceID != 0 {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.StartFrom != nil {
		q = q.Where("start_time >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		q = q.Where("start_time <= ?", *f.StartTo)
	}
	if v := f.Visibility; v != nil {
		if len(v.ResourceIDs) > 0 {
			q = q.Where("user_id = ? OR resource_id IN ?", v.UserID, v.ResourceIDs)
		} else {
			q = q.Where("user_id = ?", v.UserID)
		}
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var reservations []model.Reservation
	if err := q.Order("start_time DESC, id DESC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// CurrentOccupying returns the reservation holding the resource: the active
// one when present, otherwise the soonest scheduled one, or nil when the
// resource is free. Overlap prevention keeps the active count at most one.
func (s *gormStore) CurrentOccupying(ctx context.Context, resourceID int64) (*model.Reservation, error) {
	for _, status := range []string{model.ReservationActive, model.ReservationScheduled} {
		var reservations []model.Reservation
		err := s.db.WithContext(ctx).
			Where("resource_id = ? AND status = ?", resourceID, status).
			Order("start_time, id").
			Limit(1).
			Find(&reservations).Error
		if err != nil {
			return nil, err
		}
		if len(reservations) > 0 {
			return &reservations[0], nil
		}
	}
	return nil, nil
}

func (s *gormStore) DueScheduled(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := s.db.WithContext(ctx).
		Where("status = ? AND start_time <= ?", model.ReservationScheduled, now).
		Order("start_time, id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due reservations: %w", err)
	}
	return reservations, nil
}

func (s *gormStore) OverdueActive(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.ReservationActive, now).
		Order("expires_at, id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select overdue reservations: %w", err)
	}
	return reservations, nil
}

func (s *gormStore) HasPermission(ctx context.Context, userID, resourceID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.ResourcePermission{}).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) PermittedResourceIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.ResourcePermission{}).
		Where("user_id = ?", userID).
		Pluck("resource_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// LockForUpdate applies a row-level lock on the dialects that support it.
// SQLite serializes writers on its own, so the clause is skipped there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
