package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Auth   ports.AuthService
	Tokens ports.TokenIssuer
	Store  handler.Pinger
	// StoreName labels the store in the readiness report.
	StoreName string
	Log       zerolog.Logger
	// ProtectRoleAssignment puts Addrole behind an Admin bearer token.
	ProtectRoleAssignment bool
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	authMiddleware := middleware.Auth(deps.Tokens)

	var roleGuard []echo.MiddlewareFunc
	if deps.ProtectRoleAssignment {
		roleGuard = []echo.MiddlewareFunc{authMiddleware, middleware.RBAC(domain.RoleAdmin)}
	}

	// --- Auth routes ---
	// Echo matches paths case-sensitively; the lower-case forms are aliases.
	g := e.Group("/api/auth")
	g.POST("/register", authHandler.Register)
	g.POST("/Login", authHandler.Login)
	g.POST("/login", authHandler.Login)
	g.POST("/Addrole", authHandler.AssignRole, roleGuard...)
	g.POST("/addrole", authHandler.AssignRole, roleGuard...)
	g.GET("/me", authHandler.Me, authMiddleware)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Store, deps.StoreName)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – is the store up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
