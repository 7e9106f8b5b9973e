package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(submission *model.Submission) error {
	return r.DB.Create(submission).Error
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.DB.Preload("Feedback").Where("id = ?", id).First(&submission).Error
	return &submission, err
}

// SubmissionRow 导出用的提交记录，附带提交人信息
type SubmissionRow struct {
	model.Submission
	FullName string
	Email    string
}

func (r *SubmissionRepository) ListByExercise(exerciseID string) ([]SubmissionRow, error) {
	var rows []SubmissionRow
	err := r.DB.Table("submissions").
		Select("submissions.*, users.full_name, users.email").
		Joins("LEFT JOIN users ON users.id = submissions.user_id").
		Where("submissions.exercise_id = ? AND submissions.deleted_at IS NULL", exerciseID).
		Order("submissions.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

// AddFeedback 写入评语并把提交标记为已批改
func (r *SubmissionRepository) AddFeedback(feedback *model.Feedback) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(feedback).Error; err != nil {
			return err
		}
		return tx.Model(&model.Submission{}).
			Where("id = ?", feedback.SubmissionID).
			Update("status", model.SubmissionGraded).Error
	})
}
