package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/config"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/database"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/dtos"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/handlers"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/repositories"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/routes"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/services"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

// Application wires the consultation service: config, database, the presence
// registry and room manager, services, handlers and the HTTP server. The
// registries are constructed here and injected; nothing in the tree reaches
// for process-global state.
type Application struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *sql.DB
	srv      *http.Server
	presence *ws.Presence
	rooms    *ws.RoomManager
}

// NewLogger builds the process logger from config.
func NewLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.AppEnv == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// New validates config, opens the database and builds the full object graph.
func New(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := NewLogger(cfg)

	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	dtos.RegisterValidations()

	consultationRepo := repositories.NewConsultationRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	presence := ws.NewPresence(log)
	rooms := ws.NewRoomManager(log)

	notifier := services.NewNotificationService(notificationRepo, presence, log)
	consultationSvc := services.NewConsultationService(consultationRepo, appointmentRepo, notifier, rooms, log)
	signalingSvc := services.NewSignalingService(presence, rooms, log)

	consultationHandler := handlers.NewConsultationHandler(consultationSvc, log)
	webSocketHandler := handlers.NewWebSocketHandler(
		consultationSvc, signalingSvc, presence, rooms,
		cfg.WSReadBufferSize, cfg.WSWriteBufferSize, cfg.WSMaxMessageSize, log,
	)
	healthHandler := handlers.NewHealthHandler(db)

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	routes.RegisterPublicEndpoints(router, healthHandler, webSocketHandler, cfg.JWTSecret)
	routes.RegisterProtectedEndpoints(router, consultationHandler, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Application{
		cfg:      cfg,
		log:      log,
		db:       db,
		srv:      srv,
		presence: presence,
		rooms:    rooms,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	a.log.Info().Str("addr", a.srv.Addr).Msg("consultation service listening")

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return a.db.Close()
}
