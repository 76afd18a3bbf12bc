package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/model"
	"github.com/ysy950803/tgflow/internal/wire"
)

// Config is the slice of the service config the HTTP layer needs.
type Config interface {
	GetHTTPAddr() string
	IsHTTPEnabled() bool
}

// Status is implemented by the manager and read by the status endpoint.
type Status interface {
	LoopState() string
	Dispatched() uint64
	Failed() uint64
	SessionState() wire.State
	SessionUser() (int64, bool)
}

// Registry exposes what the manager has learned from dispatched updates.
type Registry interface {
	KnownChats() []model.Chat
	RecentTopicDumps() []TopicDump
}

// TopicDump is one recorded topic resolution, kept for the debug endpoint.
type TopicDump struct {
	Time      time.Time `json:"time"`
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	Detail    string    `json:"detail"`
}

type Service struct {
	conf     Config
	status   Status
	registry Registry

	router *gin.Engine
	server *http.Server
}

func NewService(conf Config, status Status, registry Registry) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health"),
		corsMiddleware(),
	)

	s := &Service{
		conf:     conf,
		status:   status,
		registry: registry,
		router:   router,
	}

	s.initRouter()
	return s
}

func (s *Service) Start() error {
	s.server = &http.Server{
		Addr:    s.conf.GetHTTPAddr(),
		Handler: s.router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Failed to start HTTP server")
		}
	}()

	log.Info().Msg("Starting HTTP server on " + s.conf.GetHTTPAddr())
	return nil
}

func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server")
		return nil
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Service) GetRouter() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
