package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/domain"
	"github.com/xiaot623/gogo/chatstream/internal/service"
	"github.com/xiaot623/gogo/chatstream/internal/sse"
)

// ChatStream runs one chat turn and streams the reply as server-sent events.
// Failures before the stream starts are ordinary JSON errors; after that
// they arrive as error events.
// POST /api/chat/stream
func (h *Handler) ChatStream(c echo.Context) error {
	var req domain.ChatStreamRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	writer, err := sse.NewWriter(c.Response())
	if err != nil {
		return h.fail(c, err)
	}

	ctx := c.Request().Context()
	turn, err := h.service.BeginTurn(ctx, service.TurnRequest{
		CallerID:    auth.CallerID(c),
		SessionID:   req.SessionID,
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return h.fail(c, err)
	}

	writer.Start()
	turn.Stream(ctx, writer)
	return nil
}

// ListModels lists the models the caller may select.
// GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context(), auth.CallerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"models":  models,
		"default": h.service.DefaultModel(),
	})
}
