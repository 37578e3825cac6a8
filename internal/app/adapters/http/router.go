package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miwidot/twitchmod/internal/app/adapters/http/handlers"
	"github.com/miwidot/twitchmod/internal/app/adapters/http/middlewares"
	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

type Router struct {
	router      *gin.Engine
	handlers    *handlers.Handlers
	middlewares *middlewares.Middlewares

	log     logger.Logger
	manager *config.Manager
}

func NewRouter(log logger.Logger, manager *config.Manager, chat ports.ChatPort, members ports.MembershipPort, apiPort ports.APIPort) *Router {
	r := &Router{
		router:      gin.Default(),
		handlers:    handlers.New(log, manager, chat, members, apiPort),
		middlewares: middlewares.New(),
		log:         log,
		manager:     manager,
	}
	cfg := manager.Get()

	pprofGroup := r.router.Group("/", gin.BasicAuth(gin.Accounts{
		"admin": cfg.App.AuthToken,
	}))
	pprof.Register(pprofGroup)

	r.router.GET("/metrics", gin.BasicAuth(gin.Accounts{
		"admin": cfg.App.AuthToken,
	}), gin.WrapH(promhttp.Handler()))

	r.router.GET("/status", r.middlewares.Auth(cfg.App.AuthToken), r.handlers.StatusHandler)

	moderation := r.router.Group("/moderation", r.middlewares.Auth(cfg.App.AuthToken))
	moderation.POST("/ban", r.handlers.BanHandler)
	moderation.POST("/timeout", r.handlers.TimeoutHandler)
	moderation.POST("/unban", r.handlers.UnbanHandler)
	moderation.POST("/delete", r.handlers.DeleteMessageHandler)

	return r
}

func (r *Router) Run() error {
	cfg := r.manager.Get()
	srv := r.newServer(cfg.App.ListenAddr, r.router)
	return srv.ListenAndServe()
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}
