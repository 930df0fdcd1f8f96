package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/middlewares"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/mmdatafocus/invoice_audit/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// server holds what the HTTP handlers, the pull receiver and the scheduler share.
type server struct {
	cfg          *config.AuditConfig
	logger       *logrus.Logger
	store        utils.BlobStore
	auditor      *workflow.InvoiceAuditor
	consolidator *workflow.DailyConsolidator
	redis        *redis.Client
	db           *gorm.DB
}

func newServer(cfg *config.AuditConfig, logger *logrus.Logger, s *workflow.Services) *server {
	return &server{
		cfg:          cfg,
		logger:       logger,
		store:        s.Store,
		auditor:      s.Auditor,
		consolidator: s.Consolidator,
		redis:        s.Redis,
		db:           s.DB,
	}
}

func (s *server) routes() *gin.Engine {
	origins := s.cfg.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middlewares.CorrelationHeader},
		ExposeHeaders:    []string{middlewares.CorrelationHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middlewares.CorrelationMiddleware())

	r.GET("/healthz", s.healthHandler())
	r.POST("/pubsub/invoice-exports", middlewares.PushTokenMiddleware(s.cfg.PushTokenHash), s.invoiceExportsPushHandler())

	auth := middlewares.AuthMiddleware(s.cfg.APISecret)
	r.POST("/tasks/daily-consolidation", auth, s.consolidationTaskHandler())
	api := r.Group("/api/audit", auth)
	api.GET("/results", s.resultsHandler())
	api.GET("/summaries/:date", s.summaryDownloadHandler())
	api.GET("/runs/:date", s.runHandler())
	return r
}

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadAuditConfig()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := workflow.NewServices(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire services")
	}
	defer services.Close()

	s := newServer(cfg, logger, services)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("invoice audit server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server stopped")
		}
	}()

	if cfg.Flags.ConsolidationScheduler {
		go s.runScheduler(ctx)
	}
	if cfg.InvoiceSubscription != "" && services.PubSub != nil {
		go s.receiveInvoiceExports(ctx, services.PubSub.Subscription(cfg.InvoiceSubscription))
	}

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}
