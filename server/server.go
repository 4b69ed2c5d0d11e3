package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/openvoip/voicemailstack/api"
	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/internal/cron"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/tracing"
	"github.com/openvoip/voicemailstack/services"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize services
	svcs, err := services.InitServices(cfg, audioBaseURL(cfg), appLogger)
	if err != nil {
		return nil, err
	}

	// Initialize scheduled jobs
	cronManager := cron.NewCronManager(cfg, appLogger, svcs.SyncService)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		cronManager:  cronManager,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// audioBaseURL is the externally reachable base for the audio proxy URLs
// embedded in published state. Defaults to the process hostname, which is
// the addon slug when running under the Home Assistant supervisor.
func audioBaseURL(cfg *config.Config) string {
	if cfg.AppConfig.PublicBaseURL != "" {
		return cfg.AppConfig.PublicBaseURL
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return fmt.Sprintf("http://%s:%s", hostname, cfg.AppConfig.APIPort)
}

func (s *Server) Initialize(ctx context.Context) error {
	// Fail fast on bad provider credentials before anything polls
	s.log.Info("Validating provider credentials...")
	if err := s.services.VoipmsClient.CheckCredentials(ctx); err != nil {
		return err
	}

	s.log.Info("Connecting to MQTT broker...")
	if err := s.services.Publisher.Connect(); err != nil {
		return err
	}

	// Setup HTTP routes
	api.RegisterRoutes(ctx, s.router, s.services, s.config.AppConfig.APIKey, s.log)

	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	// Create root context for the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize server components
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	// Start the sync service with panic recovery
	s.log.Info("Starting sync service...")
	var startErr error
	s.wrapGoroutine("sync_service", func() {
		startErr = s.services.SyncService.Start(ctx)
	})
	if startErr != nil {
		return startErr
	}

	// Start scheduled jobs
	s.cronManager.Start()

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on :%s", s.config.AppConfig.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})

	s.log.Info("VoicemailStack is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Wait for termination signal
	<-stop
	s.log.Info("Shutting down...")

	// Stop accepting new proxy connections and drain in-flight ones
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	}

	// Stop scheduled jobs before the services they call
	s.cronManager.Stop()

	// Stop the sync service: cancels workers, marks mailboxes offline
	stopDone := make(chan struct{})
	go s.wrapGoroutine("sync_service_shutdown", func() {
		defer close(stopDone)
		if err := s.services.SyncService.Stop(); err != nil {
			s.log.Errorf("Sync service shutdown error: %v", err)
		}
	})

	select {
	case <-stopDone:
	case <-time.After(30 * time.Second):
		s.log.Warn("Timeout stopping sync service")
	}

	s.services.Publisher.Close()

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}
