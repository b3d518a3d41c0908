package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Upload validation sentinels.
var (
	ErrUploadTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	ErrUploadsDisabled      = errors.New("photo storage is not configured")
)

// Photo uploads are sniffed, not trusted: the client-declared content type
// is ignored.
var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// FileStorage abstracts the upload destination.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores personnel photos.
type UploadService interface {
	UploadPhoto(ctx context.Context, file *multipart.FileHeader, userID uint) (string, error)
}

type uploadService struct {
	storage FileStorage
	users   UserService
	maxSize int64
	logger  zerolog.Logger
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, users UserService, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage: storage,
		users:   users,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "upload_service").Logger(),
	}
}

func (s *uploadService) UploadPhoto(ctx context.Context, file *multipart.FileHeader, userID uint) (string, error) {
	if s.storage == nil {
		return "", ErrUploadsDisabled
	}
	if file == nil {
		return "", errors.New("file is required")
	}
	if file.Size > s.maxSize {
		return "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return "", err
	}
	if int64(buf.Len()) > s.maxSize {
		return "", ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if _, ok := allowedPhotoTypes[detected.String()]; !ok {
		return "", ErrUploadTypeNotAllowed
	}

	url, err := s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", err
	}

	if _, err := s.users.SetPhotoURL(ctx, userID, url); err != nil {
		return "", err
	}

	return url, nil
}
