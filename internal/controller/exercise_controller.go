package controller

import (
	"net/http"
	"net/url"

	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExerciseController struct {
	SubmissionService *service.SubmissionService
}

func NewExerciseController(submissionService *service.SubmissionService) *ExerciseController {
	return &ExerciseController{SubmissionService: submissionService}
}

// Submit godoc
// @Summary 提交练习结果
// @Description content 为 {score,total,answers} 或 {score,total,matches}
// @Tags 练习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubmitInput true "提交内容"
// @Success 201 {object} model.Submission
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/exercises/submissions [post]
func (c *ExerciseController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.SubmissionService.Submit(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, submission)
}

// Grade godoc
// @Summary 教师批改
// @Description 添加评语和分数，提交状态变为 graded
// @Tags 练习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "提交ID"
// @Param body body service.GradeInput true "评语"
// @Success 200 {object} model.Submission
// @Failure 404 {object} util.Response
// @Router /api/exercises/submissions/{id}/feedback [post]
func (c *ExerciseController) Grade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GradeInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.SubmissionService.Grade(ctx.Request.Context(), ctx.Param("id"), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// ExportSubmissions godoc
// @Summary 导出提交记录
// @Description 导出某练习全部提交为 Excel
// @Tags 练习
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param id path string true "练习ID"
// @Success 200 {file} file
// @Failure 404 {object} util.Response
// @Router /api/exercises/{id}/submissions/export [get]
func (c *ExerciseController) ExportSubmissions(ctx *gin.Context) {
	data, filename, err := c.SubmissionService.ExportSubmissions(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	ctx.Data(http.StatusOK, xlsxContentType, data)
}
