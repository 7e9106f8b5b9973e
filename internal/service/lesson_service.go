package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LessonCache 课时读缓存
type LessonCache interface {
	Get(ctx context.Context, id string) (*model.Lesson, bool)
	Set(ctx context.Context, lesson *model.Lesson)
}

type RedisLessonCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisLessonCache(client *redis.Client, ttl time.Duration) *RedisLessonCache {
	return &RedisLessonCache{Client: client, TTL: ttl}
}

func lessonKey(id string) string {
	return "lesson:" + id
}

func (c *RedisLessonCache) Get(ctx context.Context, id string) (*model.Lesson, bool) {
	data, err := c.Client.Get(ctx, lessonKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("读取课时缓存失败", zap.String("lessonID", id), zap.Error(err))
		}
		return nil, false
	}
	var lesson model.Lesson
	if err := json.Unmarshal(data, &lesson); err != nil {
		return nil, false
	}
	return &lesson, true
}

func (c *RedisLessonCache) Set(ctx context.Context, lesson *model.Lesson) {
	data, err := json.Marshal(lesson)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, lessonKey(lesson.ID), data, c.TTL).Err(); err != nil {
		logger.Log.Warn("写入课时缓存失败", zap.String("lessonID", lesson.ID), zap.Error(err))
	}
}

type LessonService struct {
	LessonRepo   LessonStore
	ExerciseRepo ExerciseStore
	Cache        LessonCache
}

func NewLessonService(lessonRepo LessonStore, exerciseRepo ExerciseStore, cache LessonCache) *LessonService {
	return &LessonService{LessonRepo: lessonRepo, ExerciseRepo: exerciseRepo, Cache: cache}
}

func (s *LessonService) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	if s.Cache != nil {
		if lesson, ok := s.Cache.Get(ctx, id); ok {
			return lesson, nil
		}
	}

	lesson, err := s.LessonRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, lesson)
	}
	return lesson, nil
}

// ListExercises 课时不存在时返回 ErrLessonNotFound，存在但无练习时返回空切片
func (s *LessonService) ListExercises(lessonID string) ([]model.Exercise, error) {
	ok, err := s.LessonRepo.Exists(lessonID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrLessonNotFound
	}
	exercises, err := s.ExerciseRepo.ListByLesson(lessonID)
	if err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []model.Exercise{}
	}
	return exercises, nil
}
