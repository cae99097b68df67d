// Package domain defines the persisted data model of the chat application.
package domain

import "time"

// User represents a chat participant. Users are created on first use of a
// name and are immutable afterwards; there is no authentication.
type User struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;uniqueIndex:idx_users_name;not null" json:"name"`
	AvatarColor string    `gorm:"column:avatar_color;type:text;not null" json:"avatarColor"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
