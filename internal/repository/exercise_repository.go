package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type ExerciseRepository struct {
	DB *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: db}
}

func (r *ExerciseRepository) FindByID(id string) (*model.Exercise, error) {
	var exercise model.Exercise
	err := r.DB.Where("id = ?", id).First(&exercise).Error
	return &exercise, err
}

// ListByLesson 按创建顺序返回课时下的练习
func (r *ExerciseRepository) ListByLesson(lessonID string) ([]model.Exercise, error) {
	var exercises []model.Exercise
	err := r.DB.Where("lesson_id = ?", lessonID).
		Order("created_at ASC").
		Find(&exercises).Error
	return exercises, err
}
