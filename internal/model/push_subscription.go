package model

import "time"

// PushSubscription holds a browser push subscription of a report owner.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"index;size:128;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
