package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrModelNotAllowed, http.StatusForbidden},
	{domain.ErrInvalidRequest, http.StatusBadRequest},
	{domain.ErrEmailTaken, http.StatusConflict},
	{domain.ErrTurnTimeout, http.StatusGatewayTimeout},
	{domain.ErrUpstreamUnavailable, http.StatusBadGateway},
	{domain.ErrUpstreamProtocol, http.StatusBadGateway},
	{domain.ErrPersistence, http.StatusInternalServerError},
}

func statusFor(err error) int {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

// fail writes err as an ordinary JSON error response. Server-side failures
// are logged and answered with a generic message.
func (h *Handler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal server error"
	}
	return c.JSON(status, domain.ErrorResponse{Error: msg})
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed body", domain.ErrInvalidRequest)
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %s", domain.ErrInvalidRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}
