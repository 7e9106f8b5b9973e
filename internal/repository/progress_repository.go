package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Upsert 按 (user_id, lesson_id) 唯一键插入或更新状态
func (r *ProgressRepository) Upsert(progress *model.Progress) error {
	if progress.ID == "" {
		progress.ID = model.GenerateUUID()
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at", "updated_at"}),
	}).Create(progress).Error
}

func (r *ProgressRepository) Find(userID, lessonID string) (*model.Progress, error) {
	var progress model.Progress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	return &progress, err
}

func (r *ProgressRepository) ListByUser(userID string) ([]model.Progress, error) {
	var list []model.Progress
	err := r.DB.Where("user_id = ?", userID).Order("updated_at DESC").Find(&list).Error
	return list, err
}

func (r *ProgressRepository) CountCompleted(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Progress{}).
		Where("user_id = ? AND status = ?", userID, model.ProgressCompleted).
		Count(&count).Error
	return count, err
}
