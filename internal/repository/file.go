package repository

import (
	"context"

	"multiuser-chat/internal/domain"
)

// RoomFile is an uploaded file joined with its uploader's display name.
type RoomFile struct {
	domain.UploadedFile
	UserName string `json:"uploadedBy"`
}

// FileRepository stores uploaded-file metadata. The bytes themselves live on
// disk, outside the database.
type FileRepository interface {
	// Save records an uploaded file.
	Save(ctx context.Context, file *domain.UploadedFile) error

	// ListByRoom returns a room's files, newest first, with uploader names.
	ListByRoom(ctx context.Context, roomID string) ([]RoomFile, error)

	// FindByID returns the file or ErrFileNotFound.
	FindByID(ctx context.Context, id string) (*domain.UploadedFile, error)
}
