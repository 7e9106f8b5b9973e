package service

import (
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
)

// 以下接口由 repository 包中的 gorm 实现满足，测试时可替换为 mock

type UserStore interface {
	Create(user *model.User) error
	FindByID(id string) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	UpdateLastLogin(id string, at time.Time) error
}

type CourseStore interface {
	ListForUser(userID string, role model.UserRole) ([]model.Course, error)
	FindWithOutline(id string) (*model.Course, error)
	Enroll(courseID, userID string) error
}

type LessonStore interface {
	FindByID(id string) (*model.Lesson, error)
	Exists(id string) (bool, error)
}

type ExerciseStore interface {
	FindByID(id string) (*model.Exercise, error)
	ListByLesson(lessonID string) ([]model.Exercise, error)
}

type SubmissionStore interface {
	Create(submission *model.Submission) error
	FindByID(id string) (*model.Submission, error)
	ListByExercise(exerciseID string) ([]repository.SubmissionRow, error)
	AddFeedback(feedback *model.Feedback) error
}

type ProgressStore interface {
	Upsert(progress *model.Progress) error
	Find(userID, lessonID string) (*model.Progress, error)
	ListByUser(userID string) ([]model.Progress, error)
	CountCompleted(userID string) (int64, error)
}

type UploadStore interface {
	Create(upload *model.Upload) error
}
