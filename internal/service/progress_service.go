package service

import (
	"context"
	"errors"
	"time"

	"learnhub_backend/internal/events"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	ProgressRepo ProgressStore
	LessonRepo   LessonStore
	Publisher    events.Publisher
}

func NewProgressService(progressRepo ProgressStore, lessonRepo LessonStore, publisher events.Publisher) *ProgressService {
	return &ProgressService{ProgressRepo: progressRepo, LessonRepo: lessonRepo, Publisher: publisher}
}

type ProgressInput struct {
	LessonID string               `json:"lesson_id" binding:"required"`
	Status   model.ProgressStatus `json:"status" binding:"required"`
}

// Update 写入学习进度。已完成的课时不会被重新打开的 in_progress 覆盖
func (s *ProgressService) Update(ctx context.Context, userID string, in ProgressInput) (*model.Progress, error) {
	if !in.Status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	ok, err := s.LessonRepo.Exists(in.LessonID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrLessonNotFound
	}

	existing, err := s.ProgressRepo.Find(userID, in.LessonID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil && existing.Status == model.ProgressCompleted && in.Status != model.ProgressCompleted {
		return existing, nil
	}

	progress := &model.Progress{
		UserID:   userID,
		LessonID: in.LessonID,
		Status:   in.Status,
	}
	if in.Status == model.ProgressCompleted {
		now := time.Now()
		if err == nil && existing.CompletedAt != nil {
			now = *existing.CompletedAt
		}
		progress.CompletedAt = &now
	}
	if err := s.ProgressRepo.Upsert(progress); err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		event := events.New(events.EventProgressUpdated, events.ProgressUpdated{
			UserID:   userID,
			LessonID: in.LessonID,
			Status:   string(in.Status),
		})
		if err := s.Publisher.Publish(ctx, event); err != nil {
			logger.Log.Warn("发布进度事件失败", zap.String("lessonID", in.LessonID), zap.Error(err))
		}
	}

	return s.ProgressRepo.Find(userID, in.LessonID)
}

func (s *ProgressService) ListByUser(userID string) ([]model.Progress, error) {
	list, err := s.ProgressRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Progress{}
	}
	return list, nil
}
