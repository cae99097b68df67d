package domain

import "time"

// UploadedFile records a file stored on disk for a room. The companion chat
// message of type "file" references it through its metadata blob; nothing is
// enforced at the schema level.
type UploadedFile struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	RoomID    string    `gorm:"column:room_id;type:text;not null;index:idx_uploaded_files_room_id" json:"roomId"`
	UserID    string    `gorm:"column:user_id;type:text;not null" json:"userId"`
	Filename  string    `gorm:"type:text;not null" json:"filename"`
	Filepath  string    `gorm:"type:text;not null" json:"filepath"`
	FileSize  int64     `gorm:"column:file_size" json:"fileSize"`
	MimeType  string    `gorm:"column:mime_type;type:text" json:"mimeType"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
