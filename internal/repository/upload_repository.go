package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type UploadRepository struct {
	DB *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{DB: db}
}

func (r *UploadRepository) Create(upload *model.Upload) error {
	return r.DB.Create(upload).Error
}

func (r *UploadRepository) FindByID(id string) (*model.Upload, error) {
	var upload model.Upload
	err := r.DB.Where("id = ?", id).First(&upload).Error
	return &upload, err
}
