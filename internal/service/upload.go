package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/repository"
)

// MaxUploadSize caps uploaded files at 10 MiB.
const MaxUploadSize = 10 << 20

// contentPreviewLimit bounds the extracted text stored in message metadata.
const contentPreviewLimit = 1000

// allowedMimeTypes is the upload allow-list.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/csv":         true,
	"application/json": true,
}

// StoredFile is what the upload endpoint returns: the record plus a short
// content preview for text files.
type StoredFile struct {
	domain.UploadedFile
	ContentPreview string `json:"content,omitempty"`
}

// UploadService writes uploaded files to disk, records their metadata, and
// posts the companion file message.
type UploadService struct {
	fileRepo  repository.FileRepository
	roomRepo  repository.RoomRepository
	chat      *ChatService
	uploadDir string
}

// NewUploadService creates an UploadService. uploadDir is created on demand.
func NewUploadService(fileRepo repository.FileRepository, roomRepo repository.RoomRepository, chat *ChatService, uploadDir string) *UploadService {
	if fileRepo == nil {
		panic("FileRepository cannot be nil for UploadService")
	}
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for UploadService")
	}
	if chat == nil {
		panic("ChatService cannot be nil for UploadService")
	}
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &UploadService{fileRepo: fileRepo, roomRepo: roomRepo, chat: chat, uploadDir: uploadDir}
}

// Store validates, persists, and announces an uploaded file. It returns the
// stored record and the companion file message for broadcasting.
func (s *UploadService) Store(ctx context.Context, roomID, userID string, header *multipart.FileHeader) (*StoredFile, *domain.Message, error) {
	if roomID == "" || userID == "" {
		return nil, nil, fmt.Errorf("%w: roomId and userId are required", ErrValidation)
	}
	if header == nil {
		return nil, nil, fmt.Errorf("%w: no file uploaded", ErrValidation)
	}
	if header.Size > MaxUploadSize {
		return nil, nil, ErrFileTooLarge
	}
	mimeType := header.Header.Get("Content-Type")
	if !allowedMimeTypes[normalizeMime(mimeType)] {
		return nil, nil, ErrFileTypeNotAllowed
	}

	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, ErrInternalServer
	}

	fileID := uuid.NewString()
	destDir := filepath.Join(s.uploadDir, roomID, userID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		logrus.WithError(err).Error("Failed to create upload directory")
		return nil, nil, ErrInternalServer
	}
	destPath := filepath.Join(destDir, fileID+"-"+filepath.Base(header.Filename))

	src, err := header.Open()
	if err != nil {
		logrus.WithError(err).Error("Failed to open uploaded file")
		return nil, nil, ErrInternalServer
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		logrus.WithError(err).Error("Failed to create destination file")
		return nil, nil, ErrInternalServer
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		logrus.WithError(err).Error("Failed to write uploaded file")
		return nil, nil, ErrInternalServer
	}

	record := &domain.UploadedFile{
		ID:       fileID,
		RoomID:   roomID,
		UserID:   userID,
		Filename: header.Filename,
		Filepath: destPath,
		FileSize: header.Size,
		MimeType: mimeType,
	}
	if err := s.fileRepo.Save(ctx, record); err != nil {
		logrus.WithError(err).WithField("file_id", fileID).Error("Failed to save uploaded file record")
		return nil, nil, ErrInternalServer
	}

	preview := extractContentPreview(destPath, mimeType)

	// Companion message makes the upload visible in chat and feeds the AI
	// context with the file's text.
	meta := domain.FileMetadata{
		FileID:         fileID,
		Filename:       header.Filename,
		FileSize:       header.Size,
		MimeType:       mimeType,
		ContentPreview: preview,
	}
	fileMsg := &domain.Message{Type: domain.MessageTypeFile}
	if err := fileMsg.SetMetadata(meta); err != nil {
		logrus.WithError(err).Warn("Failed to encode file message metadata")
	}
	posted, err := s.chat.PostMessage(ctx, roomID, &userID,
		fmt.Sprintf("File uploaded: %s", header.Filename),
		domain.MessageTypeFile, fileMsg.Metadata)
	if err != nil {
		logrus.WithError(err).WithField("file_id", fileID).Error("Failed to post companion file message")
		return nil, nil, ErrInternalServer
	}

	stored := &StoredFile{UploadedFile: *record}
	if len(preview) > 500 {
		stored.ContentPreview = preview[:500]
	} else {
		stored.ContentPreview = preview
	}
	return stored, &posted.Message, nil
}

// ListRoomFiles returns a room's files, newest first.
func (s *UploadService) ListRoomFiles(ctx context.Context, roomID string) ([]repository.RoomFile, error) {
	files, err := s.fileRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list room files")
		return nil, ErrInternalServer
	}
	return files, nil
}

// GetFile returns an uploaded file's metadata by ID.
func (s *UploadService) GetFile(ctx context.Context, id string) (*domain.UploadedFile, error) {
	file, err := s.fileRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		logrus.WithError(err).WithField("file_id", id).Error("Failed to find uploaded file")
		return nil, ErrInternalServer
	}
	return file, nil
}

// normalizeMime strips any parameters ("text/plain; charset=utf-8").
func normalizeMime(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(strings.ToLower(mimeType))
}

// extractContentPreview reads the head of text-like files for AI context.
// Binary types get a placeholder.
func extractContentPreview(path, mimeType string) string {
	normalized := normalizeMime(mimeType)
	switch {
	case strings.HasPrefix(normalized, "text/") || normalized == "application/json":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("[error reading file: %s]", filepath.Base(path))
		}
		if len(data) > contentPreviewLimit {
			data = data[:contentPreviewLimit]
		}
		return string(data)
	case strings.HasPrefix(normalized, "image/"):
		return fmt.Sprintf("[image file: %s]", filepath.Base(path))
	case normalized == "application/pdf":
		return "[pdf content]"
	default:
		return fmt.Sprintf("[binary file: %s]", filepath.Base(path))
	}
}
