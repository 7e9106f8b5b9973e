package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MediaProber 读取视频元数据，默认使用 ffprobe
type MediaProber func(path string) (*util.MediaInfo, error)

type UploadService struct {
	Storage    StorageProvider
	UploadRepo UploadStore
	LessonRepo LessonStore
	MaxBytes   int64
	Probe      MediaProber
}

func NewUploadService(storage StorageProvider, uploadRepo UploadStore, lessonRepo LessonStore, maxMB int64) *UploadService {
	return &UploadService{
		Storage:    storage,
		UploadRepo: uploadRepo,
		LessonRepo: lessonRepo,
		MaxBytes:   maxMB << 20,
		Probe:      util.ProbeMedia,
	}
}

type UploadInput struct {
	File     *multipart.FileHeader
	LessonID string
	UserID   string
}

// objectKey 按日期分目录，保留原始扩展名
func objectKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("uploads", now.Format("2006/01/02"), uuid.NewString()+ext)
}

func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*model.Upload, error) {
	if s.MaxBytes > 0 && in.File.Size > s.MaxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d MB", util.ErrUnsupportedFile, s.MaxBytes>>20)
	}

	var lessonID *string
	if in.LessonID != "" {
		ok, err := s.LessonRepo.Exists(in.LessonID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrLessonNotFound
		}
		lessonID = &in.LessonID
	}

	src, err := in.File.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.UploadMimeTypes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrUnsupportedFile, mimeType)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := objectKey(in.File.Filename, time.Now())
	upload := &model.Upload{
		Filename:    filepath.Base(in.File.Filename),
		StoragePath: key,
		FileType:    mimeType,
		Bucket:      s.Storage.Bucket(),
		UploadedBy:  in.UserID,
		LessonID:    lessonID,
	}

	if util.IsVideo(mimeType) {
		upload.FileURL, upload.Metadata, err = s.uploadVideo(ctx, key, src, mimeType)
	} else {
		upload.FileURL, err = s.Storage.Upload(ctx, key, src, in.File.Size, mimeType)
	}
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if err := s.UploadRepo.Create(upload); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("回滚上传文件失败", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return upload, nil
}

// uploadVideo 视频先落到临时文件，用 ffprobe 读取时长和分辨率后再上传
func (s *UploadService) uploadVideo(ctx context.Context, key string, src io.Reader, mimeType string) (string, datatypes.JSON, error) {
	tmp, err := os.CreateTemp("", "learnhub-upload-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		return "", nil, err
	}

	var metadata datatypes.JSON
	if s.Probe != nil {
		info, err := s.Probe(tmp.Name())
		if err != nil {
			logger.Log.Warn("读取视频信息失败", zap.String("key", key), zap.Error(err))
		} else if data, err := json.Marshal(info); err == nil {
			metadata = datatypes.JSON(data)
		}
	}

	url, err := s.Storage.UploadFile(ctx, key, tmp.Name(), mimeType)
	return url, metadata, err
}
