package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// mp4 ftyp box
var mp4Header = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func newUploadService(t *testing.T) (*UploadService, *memoryUploadStore, string) {
	dir := t.TempDir()
	store := &memoryUploadStore{}
	lessons := new(mockLessonStore)
	lessons.On("Exists", "l1").Return(true, nil)
	lessons.On("Exists", "l404").Return(false, nil)
	svc := NewUploadService(&LocalStorageProvider{Config: &config.StorageConfig{LocalPath: dir}}, store, lessons, 5)
	return svc, store, dir
}

func TestUploadImageToLocalStorage(t *testing.T) {
	svc, store, dir := newUploadService(t)

	upload, err := svc.Upload(context.Background(), UploadInput{
		File:     fileHeader(t, "Worksheet.PNG", pngHeader),
		LessonID: "l1",
		UserID:   "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, "image/png", upload.FileType)
	assert.Equal(t, "Worksheet.PNG", upload.Filename)
	assert.True(t, strings.HasSuffix(upload.StoragePath, ".png"))
	assert.Equal(t, "/uploads/"+upload.StoragePath, upload.FileURL)
	assert.Equal(t, util.StorageLocal, upload.Bucket)
	require.NotNil(t, upload.LessonID)
	assert.Equal(t, "l1", *upload.LessonID)
	assert.Len(t, store.uploads, 1)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(upload.StoragePath)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestUploadVideoIsProbed(t *testing.T) {
	svc, _, _ := newUploadService(t)
	var probed string
	svc.Probe = func(path string) (*util.MediaInfo, error) {
		probed = path
		return &util.MediaInfo{Duration: 12.5, Width: 640, Height: 360, Format: "mov"}, nil
	}

	upload, err := svc.Upload(context.Background(), UploadInput{File: fileHeader(t, "intro.mp4", mp4Header), UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "video/mp4", upload.FileType)
	assert.NotEmpty(t, probed)
	assert.JSONEq(t, `{"duration":12.5,"width":640,"height":360,"format":"mov"}`, string(upload.Metadata))
	assert.Nil(t, upload.LessonID)

	// 临时文件已清理
	_, err = os.Stat(probed)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadRejects(t *testing.T) {
	svc, store, _ := newUploadService(t)

	_, err := svc.Upload(context.Background(), UploadInput{File: fileHeader(t, "notes.txt", []byte("plain text notes")), UserID: "u1"})
	assert.ErrorIs(t, err, util.ErrUnsupportedFile)

	_, err = svc.Upload(context.Background(), UploadInput{File: fileHeader(t, "a.png", pngHeader), LessonID: "l404", UserID: "u1"})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	svc.MaxBytes = 4
	_, err = svc.Upload(context.Background(), UploadInput{File: fileHeader(t, "a.png", pngHeader), UserID: "u1"})
	assert.ErrorIs(t, err, util.ErrUnsupportedFile)

	assert.Empty(t, store.uploads)
}
