package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// GetLesson godoc
// @Summary 获取课时
// @Description content.video_url 为可选字段
// @Tags 课时
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {object} model.Lesson
// @Failure 404 {object} util.Response
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	lesson, err := c.LessonService.GetLesson(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// ListExercises godoc
// @Summary 课时练习列表
// @Description 按创建顺序返回，第一项由课时页面加载
// @Tags 练习
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {array} model.Exercise
// @Failure 404 {object} util.Response
// @Router /api/exercises/lesson/{id} [get]
func (c *LessonController) ListExercises(ctx *gin.Context) {
	exercises, err := c.LessonService.ListExercises(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, exercises)
}
