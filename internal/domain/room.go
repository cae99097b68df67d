package domain

import "time"

// Room is a named channel grouping users and messages. The invite code is the
// sole join mechanism.
type Room struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	Name       string    `gorm:"type:text;not null" json:"name"`
	InviteCode string    `gorm:"column:invite_code;type:text;uniqueIndex:idx_rooms_invite_code;not null" json:"inviteCode"`
	CreatedBy  string    `gorm:"column:created_by;type:text;not null" json:"createdBy"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName keeps the table name used by the on-disk schema.
func (Room) TableName() string { return "chat_rooms" }

// Membership links a user to a room. The composite primary key makes joins
// idempotent at the storage layer.
type Membership struct {
	RoomID   string    `gorm:"column:room_id;type:text;primaryKey" json:"roomId"`
	UserID   string    `gorm:"column:user_id;type:text;primaryKey;index:idx_room_members_user_id" json:"userId"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime" json:"joinedAt"`
}

func (Membership) TableName() string { return "room_members" }

// Member is a room member as exposed to clients: the user plus when they joined.
type Member struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AvatarColor string    `json:"avatarColor"`
	JoinedAt    time.Time `json:"joinedAt"`
}
