package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	CourseService *service.CourseService
}

func NewDashboardController(courseService *service.CourseService) *DashboardController {
	return &DashboardController{CourseService: courseService}
}

// @Summary 获取仪表盘统计
// @Description 课程数、已完成课时数与星星数（每完成一个课时 2 颗）
// @Tags 仪表盘
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} service.DashboardStats
// @Router /api/dashboard/stats [get]
func (c *DashboardController) GetStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.CourseService.DashboardStats(user.UserID, user.Role)
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, stats)
}
