package models

import "time"

// User represents the canonical identity entity. The primary key is the
// identity provider's opaque user id, not a locally minted UUID, because
// every payment signal references users by that external id.
type User struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	Credits   int64     `gorm:"column:credits;not null;default:0;check:credits >= 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
