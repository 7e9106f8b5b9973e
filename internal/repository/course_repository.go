package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// ListForUser 学生只能看到已发布或已选的课程，教师和管理员看到全部
func (r *CourseRepository) ListForUser(userID string, role model.UserRole) ([]model.Course, error) {
	var courses []model.Course
	query := r.DB.Model(&model.Course{})
	if role == model.Student {
		query = query.Where("is_published = ? OR id IN (?)", true,
			r.DB.Model(&model.Enrollment{}).Select("course_id").Where("user_id = ?", userID))
	}
	err := query.Order("created_at DESC").Find(&courses).Error
	return courses, err
}

// FindWithOutline 加载课程及其章节、课时（按 order 排序）
func (r *CourseRepository) FindWithOutline(id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` ASC")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` ASC")
		}).
		Where("id = ?", id).
		First(&course).Error
	return &course, err
}

func (r *CourseRepository) Enroll(courseID, userID string) error {
	enrollment := model.Enrollment{CourseID: courseID, UserID: userID}
	return r.DB.Where(model.Enrollment{CourseID: courseID, UserID: userID}).
		FirstOrCreate(&enrollment).Error
}

func (r *CourseRepository) CountEnrolled(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
