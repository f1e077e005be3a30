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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-escalation-api/api/swagger"
	"github.com/noah-isme/sma-escalation-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-escalation-api/internal/middleware"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/internal/repository"
	"github.com/noah-isme/sma-escalation-api/internal/service"
	"github.com/noah-isme/sma-escalation-api/pkg/cache"
	"github.com/noah-isme/sma-escalation-api/pkg/config"
	"github.com/noah-isme/sma-escalation-api/pkg/database"
	"github.com/noah-isme/sma-escalation-api/pkg/export"
	"github.com/noah-isme/sma-escalation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-escalation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-escalation-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-escalation-api/pkg/questiongen"
	"github.com/noah-isme/sma-escalation-api/pkg/sms"
	"github.com/noah-isme/sma-escalation-api/pkg/storage"
	"github.com/noah-isme/sma-escalation-api/pkg/vision"
)

// @title SMA Escalation API
// @version 1.0.0
// @description Attendance requests, absence escalation, recovery assignments and classroom inactivity alerts.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, falling back to single-instance mode", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
		}
	}

	smsClient, err := sms.New(cfg.SMS, logr)
	if err != nil {
		logr.Fatal("failed to init sms client", zap.Error(err))
	}

	var generator questiongen.Generator
	if cfg.QuestionGen.Enabled {
		generator = questiongen.New(cfg.QuestionGen)
	} else {
		logr.Info("question generation disabled, recovery assignments will be skipped")
	}

	var classifier vision.Classifier
	if cfg.Vision.URL != "" {
		classifier = vision.NewHTTPClassifier(cfg.Vision.URL, cfg.Vision.Timeout)
	}

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	attendanceRepo := repository.NewAttendanceRepository(db)
	requestRepo := repository.NewAttendanceRequestRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	monitoringRepo := repository.NewMonitoringLogRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient, cfg.Inactivity.SessionTTL)

	notifier := service.NewNotificationService(smsClient, metricsSvc, logr, service.NotificationConfig{
		Timeout:       cfg.SMS.Timeout,
		MaxRetries:    cfg.SMS.MaxRetries,
		RetryDelay:    cfg.SMS.RetryDelay,
		Workers:       cfg.SMS.Workers,
		BufferSize:    cfg.SMS.BufferSize,
		DefaultRegion: cfg.SMS.DefaultRegion,
	})
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	notifier.Start(workerCtx)

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	recoverySvc := service.NewRecoveryAssignmentService(
		assignmentRepo,
		subjectRepo,
		attendanceRepo,
		cache.NewLocker(redisClient),
		generator,
		export.NewPDFExporter(),
		metricsSvc,
		logr,
		service.RecoveryConfig{
			WindowDays: cfg.Escalation.AssignmentWindowDays,
			Threshold:  cfg.Escalation.AssignmentAbsenceThreshold,
			DueIn:      cfg.Escalation.RecoveryDueIn,
			LockTTL:    cfg.Escalation.RecoveryLockTTL,
		},
	)
	policySvc := service.NewAbsencePolicyService(attendanceRepo, recoverySvc, studentRepo, subjectRepo, notifier, metricsSvc, logr, service.AbsencePolicyConfig{
		AssignmentWindowDays: cfg.Escalation.AssignmentWindowDays,
		AssignmentThreshold:  cfg.Escalation.AssignmentAbsenceThreshold,
		SMSWindowDays:        cfg.Escalation.SMSWindowDays,
		SMSThreshold:         cfg.Escalation.SMSAbsenceThreshold,
	})
	requestSvc := service.NewAttendanceRequestService(db, requestRepo, attendanceRepo, subjectRepo, policySvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, subjectRepo, validate, logr)
	inactivitySvc := service.NewInactivityService(studentRepo, subjectRepo, notifier, classifier, sessionRepo, metricsSvc, logr, cfg.Inactivity.Threshold)
	monitoringSvc := service.NewMonitoringService(monitoringRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, files, logr, service.SubmissionConfig{
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
		MaxFileSizeBytes:  cfg.Uploads.MaxFileSizeBytes,
	})

	authHandler := handler.NewAuthHandler()
	requestHandler := handler.NewAttendanceRequestHandler(requestSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	escalationHandler := handler.NewEscalationHandler(policySvc, validate)
	recoveryHandler := handler.NewRecoveryHandler(recoverySvc, cfg.Escalation.AssignmentWindowDays)
	monitoringHandler := handler.NewMonitoringHandler(inactivitySvc, monitoringSvc, validate)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.MaxMultipartMemory = 16 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))

	staff := internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleMentor, models.RoleAdmin)
	teachers := internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	selfOrStaff := internalmiddleware.RequireSelfOrRoles("id", models.RoleTeacher, models.RoleMentor, models.RoleAdmin)

	api.GET("/auth/me", authHandler.Me)

	api.POST("/attendance/requests", requestHandler.Create)
	api.POST("/attendance/mark-present", attendanceHandler.MarkPresent)
	api.GET("/teacher/attendance-requests", teachers, requestHandler.ListForTeacher)
	api.POST("/teacher/attendance-requests/:id/respond", teachers, requestHandler.Respond)

	api.GET("/students/:id/attendance", selfOrStaff, attendanceHandler.History)
	api.GET("/students/:id/recovery-assignments", selfOrStaff, recoveryHandler.ListForStudent)
	api.POST("/escalations/absence", staff, escalationHandler.EvaluateAbsence)

	api.POST("/subjects/:id/recovery-assignment", recoveryHandler.Ensure)
	api.GET("/assignments/:id/pdf", recoveryHandler.DownloadPDF)
	api.POST("/assignments/:id/submissions", submissionHandler.Submit)

	api.POST("/monitoring/analyze-stream", monitoringHandler.AnalyzeStream)
	api.POST("/monitoring/inactivity", staff, monitoringHandler.EvaluateInactivity)
	api.POST("/monitoring/logs", monitoringHandler.CreateLog)
	api.GET("/monitoring/logs", staff, monitoringHandler.ListLogs)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	// queued SMS are drained before the process exits
	if err := notifier.Stop(shutdownCtx); err != nil {
		logr.Error("notification drain", zap.Error(err))
	}
}
