package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/gorm"
)

var allowedExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true}

// UploadInput — загружаемый файл и заявленные вызывающей стороной владельцы.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	UserID      model.ClaimedID
	TicketID    *string
}

type MediaService struct {
	db      *gorm.DB
	dir     string
	maxSize int64
	clock   *Clock
}

func NewMediaService(db *gorm.DB, dir string, maxSize int64, clock *Clock) (*MediaService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	if clock == nil {
		clock = NewClock(nil)
	}
	return &MediaService{db: db, dir: dir, maxSize: maxSize, clock: clock}, nil
}

func fileExtension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.ToLower(ext)
}

// Upload пишет байты на диск потоково и отклоняет файл, превысивший maxSize.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*model.MediaFile, error) {
	if in.Filename == "" {
		return nil, errs.ErrNoFilename
	}
	ext := fileExtension(in.Filename)
	if !allowedExtensions[ext] {
		return nil, errs.ErrFileType
	}

	id := uuid.NewString()
	stored := id + "." + ext
	path := filepath.Join(s.dir, stored)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(in.Body, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if n > s.maxSize {
		_ = os.Remove(path)
		return nil, errs.ErrFileTooLarge
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m := &model.MediaFile{
		FileID:         id,
		Filename:       filepath.Base(in.Filename),
		StoredFilename: stored,
		URL:            "/media/" + id,
		TicketID:       in.TicketID,
		UploadedBy:     in.UserID,
		Size:           n,
		ContentType:    contentType,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return m, nil
}

func (s *MediaService) find(ctx context.Context, fileID string) (*model.MediaFile, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, errs.ErrFileNotFound
	}
	var m model.MediaFile
	if err := s.db.WithContext(ctx).First(&m, "file_id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrFileNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Open возвращает метаданные и путь к байтам. Запись без файла на диске считается отсутствующей.
func (s *MediaService) Open(ctx context.Context, fileID string) (*model.MediaFile, string, error) {
	m, err := s.find(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(s.dir, m.StoredFilename)
	if _, err := os.Stat(path); err != nil {
		return nil, "", errs.ErrFileNotFound
	}
	return m, path, nil
}

func (s *MediaService) Delete(ctx context.Context, fileID string) error {
	m, err := s.find(ctx, fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, m.StoredFilename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return s.db.WithContext(ctx).Delete(&model.MediaFile{}, "file_id = ?", fileID).Error
}
