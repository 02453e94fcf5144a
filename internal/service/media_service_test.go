package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaService(t *testing.T, maxSize int64) *MediaService {
	t.Helper()
	svc, err := NewMediaService(testutil.NewDB(t), t.TempDir(), maxSize, NewClock(nil))
	require.NoError(t, err)
	return svc
}

func TestMediaService_UploadOpenDelete(t *testing.T) {
	svc := newMediaService(t, 1024)
	ctx := context.Background()
	ticketID := uuid.NewString()

	m, err := svc.Upload(ctx, UploadInput{
		Filename:    "Photo.JPG",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
		UserID:      "u1",
		TicketID:    &ticketID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Photo.JPG", m.Filename)
	assert.Equal(t, "/media/"+m.FileID, m.URL)
	assert.EqualValues(t, len("jpeg-bytes"), m.Size)
	assert.True(t, strings.HasSuffix(m.StoredFilename, ".jpg"))

	got, path, err := svc.Open(ctx, m.FileID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", got.ContentType)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, svc.Delete(ctx, m.FileID))
	_, _, err = svc.Open(ctx, m.FileID)
	assert.ErrorIs(t, err, errs.ErrFileNotFound)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, svc.Delete(ctx, m.FileID), errs.ErrFileNotFound)
}

func TestMediaService_UploadRejects(t *testing.T) {
	svc := newMediaService(t, 4)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{Filename: "doc.pdf", Body: strings.NewReader("x"), UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrFileType)

	_, err = svc.Upload(ctx, UploadInput{Filename: "", Body: strings.NewReader("x"), UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrNoFilename)

	_, err = svc.Upload(ctx, UploadInput{Filename: "big.png", Body: strings.NewReader("12345"), UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrFileTooLarge)

	entries, err := os.ReadDir(svc.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	m, err := svc.Upload(ctx, UploadInput{Filename: "ok.png", Body: strings.NewReader("1234"), UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", m.ContentType)
}

func TestMediaService_OpenUnknown(t *testing.T) {
	svc := newMediaService(t, 1024)

	_, _, err := svc.Open(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, errs.ErrFileNotFound)
	_, _, err = svc.Open(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, errs.ErrFileNotFound)
}
