package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chronic_go_backend/cmd/api/config"
	"chronic_go_backend/internal/api"
	"chronic_go_backend/internal/auth"
	"chronic_go_backend/internal/database"
	"chronic_go_backend/internal/logging"
	"chronic_go_backend/internal/realtime"
	"chronic_go_backend/internal/services"
	"chronic_go_backend/internal/telemetry"
	"chronic_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket endpoint and notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil || cfg == nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("version", build).Msg("Starting service")

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	relay, err := newRelay(ctx, cfg.Realtime, log)
	if err != nil {
		return err
	}
	if relay != nil {
		defer relay.Close()
	}

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, cfg.Realtime.SendTimeout, log)
	notifier := realtime.NewNotifier(dispatcher, relay, cfg.Realtime.QueueSize, log)

	userService := services.NewUserService(db)
	authenticator := auth.NewAuthenticator(
		userService,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL),
		auth.CookieOptions{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(log))

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Web.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	allowed := make(map[string]bool, len(cfg.Web.AllowedOrigins))
	for _, o := range cfg.Web.AllowedOrigins {
		allowed[o] = true
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
	wsHandler := wsocket.NewHandler(registry, upgrader, wsocket.Options{
		WriteTimeout: cfg.Realtime.SendTimeout,
		PingInterval: cfg.Realtime.PingInterval,
	})

	auth.SetupRoutes(r, authenticator)
	api.SetupRoutes(r, authenticator, api.Services{
		Orgs:     services.NewOrgService(db, userService),
		Projects: services.NewProjectService(db, notifier),
		Tasks:    services.NewTaskService(db, notifier),
		Tags:     services.NewTagService(db, notifier),
		Comments: services.NewCommentService(db, notifier),
	})
	r.GET("/ws", authenticator.AuthMiddleware(), func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request, auth.CurrentUser(c))
	})

	srv := &http.Server{
		Addr:         cfg.Web.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func newRelay(ctx context.Context, cfg config.RealtimeConfig, log zerolog.Logger) (realtime.Relay, error) {
	switch cfg.Relay {
	case "redis":
		relay, err := realtime.NewRedisRelay(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis relay: %w", err)
		}
		return relay, nil
	case "nats":
		relay, err := realtime.NewNATSRelay(cfg.NATSURL, log)
		if err != nil {
			return nil, fmt.Errorf("connect nats relay: %w", err)
		}
		return relay, nil
	default:
		return nil, nil
	}
}
