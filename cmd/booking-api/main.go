package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/formaplan/trainer-booking/api/swagger"
	"github.com/formaplan/trainer-booking/internal/handler"
	"github.com/formaplan/trainer-booking/internal/middleware"
	"github.com/formaplan/trainer-booking/internal/repository"
	"github.com/formaplan/trainer-booking/internal/scheduling"
	"github.com/formaplan/trainer-booking/internal/service"
	"github.com/formaplan/trainer-booking/pkg/cache"
	"github.com/formaplan/trainer-booking/pkg/config"
	"github.com/formaplan/trainer-booking/pkg/database"
	"github.com/formaplan/trainer-booking/pkg/jobs"
	"github.com/formaplan/trainer-booking/pkg/logger"
	corsmiddleware "github.com/formaplan/trainer-booking/pkg/middleware/cors"
	reqidmiddleware "github.com/formaplan/trainer-booking/pkg/middleware/requestid"
)

// @title Trainer Booking API
// @version 1.0.0
// @description Trainer availability and qualification appointment booking
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	template, err := scheduling.LoadTemplate(cfg.Scheduling.WorkingHoursFile, cfg.Scheduling.Timezone)
	if err != nil {
		return fmt.Errorf("load working hours: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	trainerRepo := repository.NewTrainerRepository(db)
	eventRepo := repository.NewCalendarEventRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduling.CompetencyCacheTTL, logr, redisClient != nil)
	competencySvc := service.NewCompetencyService(trainerRepo, cacheSvc, cfg.Scheduling.CompetencyCacheTTL, logr)
	eventStore := service.NewEventStore(eventRepo, metricsSvc, logr)
	availabilitySvc := service.NewAvailabilityService(competencySvc, eventStore, scheduling.NewCalculator(template), validate, metricsSvc, logr)

	guard := service.NewBookingGuard(nil, cfg.Booking.GuardTTL, logr)
	if redisClient != nil {
		guard = service.NewBookingGuard(repository.NewBookingGuardRepository(redisClient), cfg.Booking.GuardTTL, logr)
	}

	queue := jobs.NewQueue("appointments", jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: cfg.Notify.RetryDelay,
		Logger:     logr,
	})
	jobTypes := []string{service.JobTypeTaskLink}
	queue.Handle(service.JobTypeTaskLink, service.NewTaskLinkUpdater(taskRepo, metricsSvc, logr).Handle)
	if cfg.Telegram.BotToken != "" {
		tg, err := bot.New(cfg.Telegram.BotToken, bot.WithSkipGetMe())
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		feed := service.NewBookingFeed(tg, cfg.Telegram.ChatID, template.Location, metricsSvc, logr)
		queue.Handle(service.JobTypeBookingFeed, feed.Handle)
		jobTypes = append(jobTypes, service.JobTypeBookingFeed)
	}
	// Workers outlive the signal so requests drained during shutdown can still enqueue.
	queue.Start(context.WithoutCancel(ctx))
	defer queue.Stop()

	notifier := service.NewAppointmentNotifier(queue, logr, jobTypes...)
	bookingSvc := service.NewBookingService(eventStore, availabilitySvc, guard, notifier, db, validate, metricsSvc, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	trainerHandler := handler.NewTrainerHandler(competencySvc)
	eventHandler := handler.NewEventHandler(eventStore)
	appointmentHandler := handler.NewAppointmentHandler(bookingSvc)

	api := r.Group(cfg.APIPrefix)
	api.GET("/availability", availabilityHandler.Month)
	api.GET("/availability/grid", availabilityHandler.Grid)
	api.GET("/availability/slots", availabilityHandler.Slots)
	api.GET("/software/:id/trainers", trainerHandler.ListForSoftware)

	events := api.Group("/events")
	events.GET("", eventHandler.List)
	events.POST("", eventHandler.Create)
	events.GET("/:id", eventHandler.Get)
	events.PATCH("/:id", eventHandler.Update)
	events.DELETE("/:id", eventHandler.Delete)

	appointments := api.Group("/tasks/:taskId/appointment")
	appointments.GET("", appointmentHandler.Get)
	appointments.POST("", appointmentHandler.Book)
	appointments.PUT("", appointmentHandler.Modify)
	appointments.DELETE("", appointmentHandler.Cancel)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("timezone", template.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
