package server

import (
	"net"
	"net/http"
	"time"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/wagate/app/api/routes"
	"github.com/wagate/pkg/config"
	"github.com/wagate/pkg/domains/auth"
	"github.com/wagate/pkg/domains/session"
	"github.com/wagate/pkg/domains/webhook"
	"github.com/wagate/pkg/middleware"
	"github.com/wagate/pkg/realtime"
	"github.com/wagate/pkg/utils"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the services the HTTP layer routes to.
type Deps struct {
	Auth     auth.Service
	Sessions session.Manager
	Webhooks webhook.Service
	Hub      *realtime.Hub
}

// NewEngine builds the gin engine with the middleware chain and every route
// group mounted under /api/v1.
func NewEngine(appc config.App, allows config.Allows, deps Deps, log zerolog.Logger) (*gin.Engine, error) {
	if err := utils.RegisterValidators(); err != nil {
		return nil, err
	}

	app := gin.New()
	app.Use(middleware.Logger(log.With().Str("component", "http").Logger()))
	app.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	app.Use(gin.Recovery())
	app.Use(otelgin.Middleware(appc.Name))
	app.Use(middleware.ClaimIp())
	app.Use(cors.New(corsConfig(allows)))

	p := ginprom.New(
		ginprom.Engine(app),
		ginprom.Subsystem("gin"),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/docs/*any"),
	)
	app.Use(p.Instrument())

	app.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := app.Group("/api/v1")
	authn := middleware.CheckAuth(appc.Secret)

	routes.AuthRoutes(api.Group("/auth"), deps.Auth)
	routes.SessionRoutes(api.Group("/sessions"), deps.Sessions, authn)
	routes.WebhookRoutes(api.Group("/sessions/:id/webhooks"), deps.Sessions, deps.Webhooks, authn)
	routes.RealtimeRoutes(api, deps.Sessions, deps.Hub, authn)

	return app, nil
}

// NewHTTPServer wraps the engine; the caller owns ListenAndServe and Shutdown.
func NewHTTPServer(appc config.App, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(appc.Host, appc.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func corsConfig(allows config.Allows) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Origin", "Accept"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allows.Methods) > 0 {
		cfg.AllowMethods = allows.Methods
	}
	if len(allows.Headers) > 0 {
		cfg.AllowHeaders = allows.Headers
	}
	if len(allows.Origins) > 0 {
		cfg.AllowOrigins = allows.Origins
	}
	return cfg
}
