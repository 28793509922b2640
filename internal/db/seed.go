package db

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resource-reservation-backend/internal/auth"
	"resource-reservation-backend/internal/model"
)

// Seed provisions demo accounts, rooms and devices on an empty database so
// a fresh checkout is usable immediately. A database that already has users
// is left untouched.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding demo data...")

	adminHash, err := auth.HashPassword("admin123")
	if err != nil {
		return err
	}
	userHash, err := auth.HashPassword("user123")
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := &model.User{
			Username:     "admin",
			PasswordHash: adminHash,
			Role:         model.RoleAdmin,
			FullName:     "Administrador",
			Email:        "admin@example.com",
			IsActive:     true,
		}
		user := &model.User{
			Username:     "user",
			PasswordHash: userHash,
			Role:         model.RoleUser,
			FullName:     "Usuário Padrão",
			Email:        "user@example.com",
			IsActive:     true,
		}
		if err := tx.Create(admin).Error; err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		sala := &model.Resource{
			Name:        "Sala 101",
			Description: "Sala de reunião do primeiro andar",
			Type:        "room",
			Location:    "Bloco A",
			Capacity:    10,
			Status:      model.ResourceAvailable,
		}
		lab := &model.Resource{
			Name:        "Laboratório de Informática",
			Description: "Laboratório com 20 estações",
			Type:        "lab",
			Location:    "Bloco B",
			Capacity:    20,
			Status:      model.ResourceAvailable,
		}
		if err := tx.Create(sala).Error; err != nil {
			return err
		}
		if err := tx.Create(lab).Error; err != nil {
			return err
		}

		temp := 24.5
		lock := &model.Device{
			Name:       "Tranca da Sala 101",
			Type:       model.DeviceLock,
			Status:     "active",
			APIKey:     uuid.NewString(),
			ResourceID: &sala.ID,
		}
		sensor := &model.Device{
			Name:         "Sensor de Temperatura",
			Type:         model.DeviceSensor,
			Status:       "active",
			APIKey:       uuid.NewString(),
			NumericValue: &temp,
			ResourceID:   &lab.ID,
		}
		if err := tx.Create(lock).Error; err != nil {
			return err
		}
		if err := tx.Create(sensor).Error; err != nil {
			return err
		}

		perm := &model.ResourcePermission{UserID: user.ID, ResourceID: sala.ID}
		if err := tx.Create(perm).Error; err != nil {
			return err
		}

		log.Printf("Seeded accounts admin/admin123 and user/user123")
		log.Printf("Seeded device api keys: %s=%s %s=%s", lock.Name, lock.APIKey, sensor.Name, sensor.APIKey)
		return nil
	})
}
