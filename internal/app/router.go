package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	auth := middleware.AuthMiddleware(cfg, s.blacklist)
	authGroup := router.Group("/api")
	authGroup.Use(auth)
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)
	}

	// 3. 课时页面
	a.registerViewerRoutes(router, c, auth)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/auth/logout", c.auth.Logout)
	rg.GET("/auth/me", c.auth.Me)

	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.POST("/courses/:id/enroll", c.course.Enroll)

	rg.GET("/lessons/:id", c.lesson.GetLesson)
	rg.GET("/exercises/lesson/:id", c.lesson.ListExercises)
	rg.POST("/exercises/submissions", c.exercise.Submit)

	rg.POST("/progress", c.progress.UpdateProgress)
	rg.GET("/progress/user", c.progress.ListUserProgress)
	rg.GET("/dashboard/stats", c.dashboard.GetStats)

	rg.POST("/uploads", c.upload.Upload)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/exercises/:id/submissions/export", c.exercise.ExportSubmissions)
		teacher.POST("/exercises/submissions/:id/feedback", c.exercise.Grade)
	}
}

func (a *App) registerViewerRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	v := router.Group("/viewer")
	v.Use(auth)
	{
		v.POST("/sessions", c.viewer.OpenSession)
		v.GET("/sessions/:id", c.viewer.GetSession)
		v.DELETE("/sessions/:id", c.viewer.CloseSession)
		v.POST("/sessions/:id/tab", c.viewer.SelectTab)
		v.POST("/sessions/:id/video", c.viewer.Video)
		v.POST("/sessions/:id/repeat", c.viewer.Repeat)
		v.POST("/sessions/:id/help", c.viewer.Help)
		v.POST("/sessions/:id/exercise/submit", c.viewer.SubmitExercise)
		v.POST("/sessions/:id/exercise/retry", c.viewer.RetryExercise)
		v.POST("/sessions/:id/document", c.viewer.UploadDocument)
		v.GET("/sessions/:id/document", c.viewer.GetDocument)
		v.POST("/sessions/:id/annotations", c.viewer.Annotate)
		v.GET("/sessions/:id/ws", c.viewer.HandleWS)
	}
}
