package app

import (
	"classassess_backend/internal/config"
	"classassess_backend/internal/controller"
	"classassess_backend/internal/repository"
	"classassess_backend/internal/service"
	"classassess_backend/pkg/database"
	"classassess_backend/pkg/logger"
	"classassess_backend/pkg/monitoring"
	"classassess_backend/pkg/security"
	"classassess_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user         *repository.UserRepository
	module       *repository.ModuleRepository
	test         *repository.TestRepository
	submission   *repository.SubmissionRepository
	answer       *repository.AnswerRepository
	appeal       *repository.AppealRepository
	notification *repository.NotificationRepository
}

type services struct {
	auth         *service.AuthService
	test         *service.TestService
	grading      *service.GradingService
	submission   *service.SubmissionService
	appeal       *service.AppealService
	notification *service.NotificationService
	hub          *service.NotificationHub
}

type controllers struct {
	auth         *controller.AuthController
	test         *controller.TestController
	submission   *controller.SubmissionController
	appeal       *controller.AppealController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		module:       repository.NewModuleRepository(db),
		test:         repository.NewTestRepository(db),
		submission:   repository.NewSubmissionRepository(db),
		answer:       repository.NewAnswerRepository(db),
		appeal:       repository.NewAppealRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.notification = service.NewNotificationService(repos.notification, rdb)
	s.hub = service.NewNotificationHub(rdb)
	go s.hub.Run()

	evaluator := service.NewFailoverEvaluator(
		service.NewAIEvaluator(cfg.Evaluator),
		service.NewHeuristicEvaluator(),
		time.Duration(cfg.Evaluator.TimeoutSeconds)*time.Second,
	)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.test = service.NewTestService(repos.test, repos.module, repos.user, s.notification)
	s.grading = service.NewGradingService(repos.test, repos.submission, repos.answer, evaluator, s.notification)
	s.submission = service.NewSubmissionService(repos.submission, repos.answer, repos.test, repos.appeal)
	s.appeal = service.NewAppealService(repos.appeal, repos.submission, repos.answer, repos.test, s.notification, rdb)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		test:         controller.NewTestController(s.test),
		submission:   controller.NewSubmissionController(s.grading, s.submission),
		appeal:       controller.NewAppealController(s.appeal),
		notification: controller.NewNotificationController(s.notification, s.hub),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 6000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks launches the periodic sweep that completes
// tests whose window has ended.
func (a *App) startBackgroundTasks(s *services) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			s.test.CompleteExpiredTests()
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.MigrateOnly {
		logger.Log.Info("Migration-only run complete")
		os.Exit(0)
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("classassess", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
