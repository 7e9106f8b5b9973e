package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"learnhub_backend/internal/apiclient"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/events"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"learnhub_backend/internal/viewer"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lessonCacheTTL = 10 * time.Minute

type App struct {
	Config          *config.Config
	ConfigPath      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	controllers     *controllers
	origins         *security.OriginList
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	lesson     *repository.LessonRepository
	exercise   *repository.ExerciseRepository
	submission *repository.SubmissionRepository
	progress   *repository.ProgressRepository
	upload     *repository.UploadRepository
}

type services struct {
	auth       *service.AuthService
	blacklist  *service.TokenBlacklist
	course     *service.CourseService
	lesson     *service.LessonService
	submission *service.SubmissionService
	progress   *service.ProgressService
	upload     *service.UploadService
	storage    service.StorageProvider
	publisher  events.Publisher
	viewers    *viewer.Registry
}

type controllers struct {
	auth      *controller.AuthController
	course    *controller.CourseController
	lesson    *controller.LessonController
	exercise  *controller.ExerciseController
	progress  *controller.ProgressController
	dashboard *controller.DashboardController
	upload    *controller.UploadController
	viewer    *controller.ViewerController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		lesson:     repository.NewLessonRepository(db),
		exercise:   repository.NewExerciseRepository(db),
		submission: repository.NewSubmissionRepository(db),
		progress:   repository.NewProgressRepository(db),
		upload:     repository.NewUploadRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	publisher, err := events.NewPublisher(cfg.Events, logger.Named("events"))
	if err != nil {
		// 消息队列不可用时不影响主流程
		logger.Log.Error("Failed to initialize event publisher, events disabled", zap.Error(err))
		publisher = events.NewMemoryPublisher()
	}
	s.publisher = publisher

	s.blacklist = service.NewTokenBlacklist(rdb)
	s.storage = service.NewStorageProvider(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, s.blacklist, cfg)
	s.course = service.NewCourseService(repos.course, repos.progress)
	s.lesson = service.NewLessonService(repos.lesson, repos.exercise, service.NewRedisLessonCache(rdb, lessonCacheTTL))
	s.submission = service.NewSubmissionService(repos.exercise, repos.submission, publisher)
	s.progress = service.NewProgressService(repos.progress, repos.lesson, publisher)
	s.upload = service.NewUploadService(s.storage, repos.upload, repos.lesson, cfg.Storage.MaxUploadMB)
	s.viewers = viewer.NewRegistry(cfg.Viewer.SessionTTL(), logger.Named("viewer"))

	return s
}

// viewerOptions 新会话的默认选项，配置热更新时重新计算
func viewerOptions(cfg *config.Config) []viewer.Option {
	return []viewer.Option{
		viewer.WithRevertAfter(cfg.Viewer.RevertAfter()),
		viewer.WithMaxDocumentBytes(cfg.Viewer.MaxDocumentMB << 20),
	}
}

// newAPIFactory 查看器通过 REST 接口访问本服务，每个会话使用调用者自己的令牌
func newAPIFactory(cfg *config.Config) controller.APIFactory {
	return func(token string) viewer.API {
		return apiclient.New(cfg.API.BaseURL,
			apiclient.WithTimeout(cfg.API.Timeout()),
			apiclient.WithStore(apiclient.NewMemoryStore(token)),
			apiclient.WithLogger(logger.Named("apiclient")),
		)
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	ws := viewer.WSConfig{
		MessagesPerSec: a.Config.Viewer.WSMessagesPerSec,
		Burst:          a.Config.Viewer.WSBurst,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || a.origins.Allowed(origin)
		},
	}

	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		course:    controller.NewCourseController(s.course),
		lesson:    controller.NewLessonController(s.lesson),
		exercise:  controller.NewExerciseController(s.submission),
		progress:  controller.NewProgressController(s.progress),
		dashboard: controller.NewDashboardController(s.course),
		upload:    controller.NewUploadController(s.upload),
		viewer:    controller.NewViewerController(s.viewers, newAPIFactory(a.Config), ws, viewerOptions(a.Config)...),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	a.origins = security.NewOriginList(cfg.CORS.AllowedOrigins)
	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)

	router.Use(security.CORS(a.origins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloaders CORS 白名单、限流和头像计时支持热更新
func (a *App) registerReloaders() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.origins.Set(cfg.CORS.AllowedOrigins)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.limiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.controllers.viewer.SetOptions(viewerOptions(cfg)...)
	})
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.services.viewers.Run(ctx)
	go a.limiter.Run(ctx.Done())

	go func() {
		err := configwatcher.WatchConfig(ctx, a.ConfigPath, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	// release 模式默认不自动迁移，需显式 -migrate
	migrate := cfg.ForceMigrate || cfg.Server.Mode != "release"
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config:     cfg,
		ConfigPath: filepath.Join(configDir, "config.yaml"),
		DB:         db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	app.Redis = rdb

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router
	app.setupMiddlewares(router, cfg)

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb)
	app.controllers = app.initControllers(app.services, db, rdb)
	app.registerReloaders()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("learnhub", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, app.controllers, app.services, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.startBackgroundTasks(ctx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stop()

	// 关闭查看器会话与事件发布
	a.services.viewers.Close()
	if err := a.services.publisher.Close(); err != nil {
		logger.Log.Error("Failed to close event publisher", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
