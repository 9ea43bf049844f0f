package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// Register creates an account.
// POST /api/auth/register
func (h *Handler) Register(c echo.Context) error {
	var req domain.CredentialsRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	user, err := h.service.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, domain.UserResponse{ID: user.ID, Email: user.Email})
}

// Login checks credentials and sets the session cookie.
// POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	var req domain.CredentialsRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	user, token, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	c.SetCookie(h.auth.SessionCookie(token, h.cookieSecure))
	return c.JSON(http.StatusOK, domain.UserResponse{ID: user.ID, Email: user.Email})
}

// Logout clears the session cookie.
// POST /api/auth/logout
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(h.auth.ClearCookie(h.cookieSecure))
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the caller's account.
// GET /api/auth/me
func (h *Handler) Me(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), auth.CallerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, domain.UserResponse{ID: user.ID, Email: user.Email})
}

// ChangePassword replaces the caller's password.
// POST /api/auth/change-password
func (h *Handler) ChangePassword(c echo.Context) error {
	var req domain.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.service.ChangePassword(c.Request().Context(), auth.CallerID(c), req.Current, req.Next); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
