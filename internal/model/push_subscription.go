package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// A subscriber picks the resources they want availability alerts for.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"-"`
	Auth      string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Resources []*Resource `gorm:"many2many:subscription_resource_mapping;" json:"-"`
}
