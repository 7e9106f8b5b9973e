package service

import (
	"errors"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo   CourseStore
	ProgressRepo ProgressStore
}

func NewCourseService(courseRepo CourseStore, progressRepo ProgressStore) *CourseService {
	return &CourseService{CourseRepo: courseRepo, ProgressRepo: progressRepo}
}

func (s *CourseService) ListCourses(userID string, role model.UserRole) ([]model.Course, error) {
	courses, err := s.CourseRepo.ListForUser(userID, role)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

func (s *CourseService) GetCourse(id string) (*model.Course, error) {
	course, err := s.CourseRepo.FindWithOutline(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (s *CourseService) Enroll(courseID, userID string) error {
	if _, err := s.GetCourse(courseID); err != nil {
		return err
	}
	return s.CourseRepo.Enroll(courseID, userID)
}

// starsPerLesson 每完成一个课时获得的星星数
const starsPerLesson = 2

type DashboardStats struct {
	Courses          int   `json:"courses"`
	CompletedLessons int64 `json:"completed_lessons"`
	Stars            int64 `json:"stars"`
}

func (s *CourseService) DashboardStats(userID string, role model.UserRole) (*DashboardStats, error) {
	courses, err := s.ListCourses(userID, role)
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CountCompleted(userID)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		Courses:          len(courses),
		CompletedLessons: completed,
		Stars:            completed * starsPerLesson,
	}, nil
}
