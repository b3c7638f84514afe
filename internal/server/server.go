package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"geminicli2api/internal/codeassist"
	"geminicli2api/internal/config"
	"geminicli2api/internal/credential"
	"geminicli2api/internal/handlers"
	"geminicli2api/internal/middleware"
)

// Server owns the HTTP surface and the background credential watcher.
type Server struct {
	cfg     *config.Config
	manager *credential.Manager
	httpSrv *http.Server

	watchCancel context.CancelFunc
}

// New assembles the router and its collaborators.
func New(cfg *config.Config, manager *credential.Manager, client *codeassist.Client, resolver *codeassist.Resolver) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handlers.New(manager, client, resolver)

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	router.GET("/health", h.Health)

	limiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)
	auth := middleware.Auth(middleware.AuthConfig{
		Password:     cfg.AuthPassword,
		PasswordHash: cfg.AuthPasswordHash,
	})

	v1 := router.Group("/v1", limiter.Middleware(), auth)
	{
		v1.POST("/chat/completions", h.ChatCompletions)
		v1.GET("/models", h.ListModels)
		v1.GET("/models/:model", h.GetModel)
	}

	return &Server{
		cfg:     cfg,
		manager: manager,
		httpSrv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// No write timeout: streaming responses stay open arbitrarily
			// long.
		},
	}
}

// Start begins serving and, for the file store, watching the credential
// directory. Blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	if s.cfg.RedisAddr == "" && s.cfg.AuthDir != "" {
		watchCtx, cancel := context.WithCancel(context.Background())
		s.watchCancel = cancel
		go func() {
			if err := credential.WatchDir(watchCtx, s.cfg.AuthDir, s.manager); err != nil && watchCtx.Err() == nil {
				log.WithError(err).Warn("credential directory watcher stopped")
			}
		}()
	}

	log.Infof("listening on %s", s.cfg.Addr())
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the watcher.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.watchCancel != nil {
		s.watchCancel()
	}
	return s.httpSrv.Shutdown(ctx)
}
