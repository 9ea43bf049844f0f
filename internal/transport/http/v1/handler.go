// Package v1 provides the /api HTTP handlers of the chat backend.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service      *service.Service
	auth         *auth.Provider
	cookieSecure bool
	logger       zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, provider *auth.Provider, cookieSecure bool, logger zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		auth:         provider,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/", h.Hello)

	// Account API
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)

	authed := api.Group("", h.auth.Middleware())
	authed.GET("/auth/me", h.Me)
	authed.POST("/auth/change-password", h.ChangePassword)

	// Session API
	authed.POST("/sessions", h.CreateSession)
	authed.GET("/sessions", h.ListSessions)
	authed.PUT("/sessions/:id", h.UpdateSession)
	authed.DELETE("/sessions/:id", h.DeleteSession)
	authed.GET("/sessions/:id/messages", h.GetSessionMessages)

	// Chat API
	authed.POST("/chat/stream", h.ChatStream)
	authed.GET("/models", h.ListModels)

	e.GET("/health", h.Health)
}

// Hello answers the API root.
// GET /api/
func (h *Handler) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Hello World"})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
