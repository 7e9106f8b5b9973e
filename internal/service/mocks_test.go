package service

import (
	"context"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(user *model.User) error {
	args := m.Called(user)
	if user.ID == "" {
		user.ID = "user-1"
	}
	return args.Error(0)
}

func (m *mockUserStore) FindByID(id string) (*model.User, error) {
	args := m.Called(id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserStore) FindByEmail(email string) (*model.User, error) {
	args := m.Called(email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserStore) UpdateLastLogin(id string, at time.Time) error {
	return m.Called(id, at).Error(0)
}

type mockRevoker struct{ mock.Mock }

func (m *mockRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return m.Called(ctx, tokenID, ttl).Error(0)
}

type mockLessonStore struct{ mock.Mock }

func (m *mockLessonStore) FindByID(id string) (*model.Lesson, error) {
	args := m.Called(id)
	l, _ := args.Get(0).(*model.Lesson)
	return l, args.Error(1)
}

func (m *mockLessonStore) Exists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

type mockExerciseStore struct{ mock.Mock }

func (m *mockExerciseStore) FindByID(id string) (*model.Exercise, error) {
	args := m.Called(id)
	e, _ := args.Get(0).(*model.Exercise)
	return e, args.Error(1)
}

func (m *mockExerciseStore) ListByLesson(lessonID string) ([]model.Exercise, error) {
	args := m.Called(lessonID)
	e, _ := args.Get(0).([]model.Exercise)
	return e, args.Error(1)
}

type mockSubmissionStore struct{ mock.Mock }

func (m *mockSubmissionStore) Create(s *model.Submission) error {
	args := m.Called(s)
	if s.ID == "" {
		s.ID = "sub-1"
	}
	return args.Error(0)
}

func (m *mockSubmissionStore) FindByID(id string) (*model.Submission, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*model.Submission)
	return s, args.Error(1)
}

func (m *mockSubmissionStore) ListByExercise(exerciseID string) ([]repository.SubmissionRow, error) {
	args := m.Called(exerciseID)
	r, _ := args.Get(0).([]repository.SubmissionRow)
	return r, args.Error(1)
}

func (m *mockSubmissionStore) AddFeedback(f *model.Feedback) error {
	return m.Called(f).Error(0)
}

type mockProgressStore struct{ mock.Mock }

func (m *mockProgressStore) Upsert(p *model.Progress) error {
	return m.Called(p).Error(0)
}

func (m *mockProgressStore) Find(userID, lessonID string) (*model.Progress, error) {
	args := m.Called(userID, lessonID)
	p, _ := args.Get(0).(*model.Progress)
	return p, args.Error(1)
}

func (m *mockProgressStore) ListByUser(userID string) ([]model.Progress, error) {
	args := m.Called(userID)
	p, _ := args.Get(0).([]model.Progress)
	return p, args.Error(1)
}

func (m *mockProgressStore) CountCompleted(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockCourseStore struct{ mock.Mock }

func (m *mockCourseStore) ListForUser(userID string, role model.UserRole) ([]model.Course, error) {
	args := m.Called(userID, role)
	c, _ := args.Get(0).([]model.Course)
	return c, args.Error(1)
}

func (m *mockCourseStore) FindWithOutline(id string) (*model.Course, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*model.Course)
	return c, args.Error(1)
}

func (m *mockCourseStore) Enroll(courseID, userID string) error {
	return m.Called(courseID, userID).Error(0)
}

type memoryUploadStore struct {
	uploads []*model.Upload
	err     error
}

func (s *memoryUploadStore) Create(u *model.Upload) error {
	if s.err != nil {
		return s.err
	}
	u.ID = "upload-1"
	s.uploads = append(s.uploads, u)
	return nil
}
