package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-portal-api/api/swagger"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/cache"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/export"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
)

// @title Campus Portal API
// @version 1.0.0
// @description Schedule announcements, notifications and the student assistant
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	app := build(cfg, db, redisClient, logr)
	if app.cacheRepo != nil {
		defer app.cacheRepo.Close() //nolint:errcheck
	}

	if cfg.Bootstrap.Username != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := app.auth.EnsureSuperAdmin(ctx, service.BootstrapAccount{
			Username: cfg.Bootstrap.Username,
			Email:    cfg.Bootstrap.Email,
			Password: cfg.Bootstrap.Password,
		})
		cancel()
		if err != nil {
			logr.Fatal("bootstrap superadmin failed", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", app.cacheRepo != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router    *gin.Engine
	auth      *service.AuthService
	cacheRepo *repository.CacheRepository
}

func build(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	validate := validator.New()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	accounts := repository.NewAccountRepository(db)
	courses := repository.NewCourseRepository(db)
	study := repository.NewStudyRepository(db)
	events := repository.NewScheduleEventRepository(db)
	notifications := repository.NewNotificationRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "portal", logr)
	}
	cacheSvc := service.NewCacheService(cacheRepoOrNil(cacheRepo), metrics, cfg.Redis.CacheTTL, logr, cacheRepo != nil)

	authSvc := service.NewAuthService(accounts, cacheSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	broadcaster := service.NewBroadcaster(courses, accounts, notifications, metrics, logr)
	scheduleSvc := service.NewScheduleEventService(events, courses, broadcaster, validate, logr)
	notificationSvc := service.NewNotificationService(notifications, broadcaster, accounts, courses, export.NewRenderer(), validate, logr, service.NotificationConfig{
		ListLimit:      cfg.Notifications.ListLimit,
		ListMax:        cfg.Notifications.ListMax,
		BroadcastLimit: cfg.Notifications.BroadcastLimit,
	})
	messagingSvc := service.NewMessagingService(courses, accounts, notifications, broadcaster, cacheSvc, validate, logr, service.MessagingConfig{
		DirectoryTTL: cfg.Chatbot.DirectoryCacheTTL,
		HistoryLimit: cfg.Notifications.HistoryLimit,
	})
	chatbotSvc := service.NewChatbotService(courses, study, messagingSvc, service.NewPicker(cfg.Chatbot.Seed), metrics, logr, service.ChatbotConfig{
		AssignmentLimit: cfg.Chatbot.AssignmentLimit,
		MaterialLimit:   cfg.Chatbot.MaterialLimit,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), authSvc, routeHandlers{
		auth:         handler.NewAuthHandler(authSvc),
		chatbot:      handler.NewChatbotHandler(chatbotSvc, messagingSvc),
		notification: handler.NewNotificationHandler(notificationSvc),
		schedule:     handler.NewScheduleEventHandler(scheduleSvc),
	})

	return &application{router: r, auth: authSvc, cacheRepo: cacheRepo}
}

// cacheRepoOrNil keeps a nil *CacheRepository from becoming a non-nil
// interface value.
func cacheRepoOrNil(repo *repository.CacheRepository) service.CacheRepository {
	if repo == nil {
		return nil
	}
	return repo
}

type routeHandlers struct {
	auth         *handler.AuthHandler
	chatbot      *handler.ChatbotHandler
	notification *handler.NotificationHandler
	schedule     *handler.ScheduleEventHandler
}

func registerRoutes(api *gin.RouterGroup, tokens middleware.TokenValidator, h routeHandlers) {
	can := middleware.RequireCapability

	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.GET("/auth/me", h.auth.Me)
	secured.PATCH("/accounts/:id/role", can(models.CapAccountsManage), h.auth.UpdateRole)

	chat := secured.Group("/chatbot", can(models.CapChat))
	chat.POST("/message", h.chatbot.Message)
	chat.POST("/send-to-teacher", h.chatbot.SendToTeacher)
	chat.POST("/send-to-admin", h.chatbot.SendToAdmin)
	chat.GET("/teachers", h.chatbot.Teachers)
	chat.GET("/admins", h.chatbot.Admins)
	chat.GET("/history", h.chatbot.History)

	inbox := secured.Group("/notifications")
	inbox.GET("", can(models.CapNotificationsRead), h.notification.List)
	inbox.GET("/unread-count", can(models.CapNotificationsRead), h.notification.UnreadCount)
	inbox.POST("/read-all", can(models.CapNotificationsRead), h.notification.MarkAllRead)
	inbox.POST("/:id/read", can(models.CapNotificationsRead), h.notification.MarkRead)
	inbox.DELETE("/:id", can(models.CapNotificationsRead), h.notification.Delete)
	inbox.POST("/broadcast", can(models.CapNotificationsBroadcast), h.notification.Broadcast)
	inbox.GET("/schedule-broadcasts", can(models.CapScheduleAudit), h.notification.ScheduleBroadcasts)
	inbox.GET("/schedule-broadcasts/export", can(models.CapScheduleAudit), h.notification.ExportScheduleBroadcasts)

	secured.POST("/courses/:id/messages", can(models.CapCourseMessage), h.notification.MessageCourse)

	events := secured.Group("/schedule-events")
	events.GET("/upcoming", can(models.CapScheduleView), h.schedule.Upcoming)
	events.POST("", can(models.CapScheduleCreate), h.schedule.Create)
	events.PUT("/:id", can(models.CapScheduleCreate), h.schedule.Update)
	events.DELETE("/:id", can(models.CapScheduleCreate), h.schedule.Delete)
	events.POST("/:id/notify", can(models.CapScheduleRenotify), h.schedule.Renotify)
}
