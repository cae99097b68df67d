package service_test

import (
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multiuser-chat/internal/repository/mocks"
	"multiuser-chat/internal/service"
)

func newUploadServiceWithMocks(t *testing.T) (*service.UploadService, *mocks.FileRepository, *mocks.RoomRepository) {
	t.Helper()
	fileRepo := new(mocks.FileRepository)
	roomRepo := new(mocks.RoomRepository)
	chat := service.NewChatService(new(mocks.MessageRepository), new(mocks.SequenceRepository), new(mocks.UserRepository), roomRepo)
	return service.NewUploadService(fileRepo, roomRepo, chat, t.TempDir()), fileRepo, roomRepo
}

func fileHeader(filename, contentType string, size int64) *multipart.FileHeader {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: filename,
		Header:   header,
		Size:     size,
	}
}

func TestUploadService_Store_RejectsOversizedFile(t *testing.T) {
	uploadService, fileRepo, _ := newUploadServiceWithMocks(t)

	_, _, err := uploadService.Store(context.Background(), "room-1", "user-1",
		fileHeader("huge.pdf", "application/pdf", service.MaxUploadSize+1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrFileTooLarge))
	fileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUploadService_Store_RejectsDisallowedMime(t *testing.T) {
	uploadService, fileRepo, _ := newUploadServiceWithMocks(t)

	cases := []struct {
		filename    string
		contentType string
	}{
		{"payload.exe", "application/x-msdownload"},
		{"archive.zip", "application/zip"},
		{"video.mp4", "video/mp4"},
		{"unknown.bin", ""},
	}
	for _, tc := range cases {
		_, _, err := uploadService.Store(context.Background(), "room-1", "user-1",
			fileHeader(tc.filename, tc.contentType, 128))
		require.Error(t, err, "expected %q to be rejected", tc.contentType)
		assert.True(t, errors.Is(err, service.ErrFileTypeNotAllowed), "content type %q", tc.contentType)
	}
	fileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUploadService_Store_AllowedMimePassesValidation(t *testing.T) {
	// Allowed types make it past validation to the room check; a MIME
	// parameter like charset must not defeat the allow-list.
	uploadService, _, roomRepo := newUploadServiceWithMocks(t)
	ctx := context.Background()

	roomRepo.On("FindByID", ctx, "missing-room").Return(nil, errors.New("boom"))

	for _, contentType := range []string{
		"image/png",
		"application/pdf",
		"text/plain; charset=utf-8",
		"application/json",
	} {
		_, _, err := uploadService.Store(ctx, "missing-room", "user-1",
			fileHeader("file", contentType, 128))
		require.Error(t, err)
		assert.False(t, errors.Is(err, service.ErrFileTypeNotAllowed), "content type %q should be allowed", contentType)
		assert.False(t, errors.Is(err, service.ErrFileTooLarge))
	}
}

func TestUploadService_Store_MissingIdentifiers(t *testing.T) {
	uploadService, _, _ := newUploadServiceWithMocks(t)

	_, _, err := uploadService.Store(context.Background(), "", "user-1",
		fileHeader("a.txt", "text/plain", 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))

	_, _, err = uploadService.Store(context.Background(), "room-1", "",
		fileHeader("a.txt", "text/plain", 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))
}
