package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

const callerKey = "callerID"

// Provider resolves the caller of a request from its access token. The token
// is read from the session cookie first, then from an Authorization: Bearer header.
type Provider struct {
	tokens     *Tokens
	cookieName string
}

// NewProvider creates a Provider.
func NewProvider(tokens *Tokens, cookieName string) *Provider {
	return &Provider{tokens: tokens, cookieName: cookieName}
}

// ResolveCaller returns the id of the user making r, or domain.ErrUnauthenticated.
// A cookie that fails verification does not hide a valid Bearer token.
func (p *Provider) ResolveCaller(r *http.Request) (string, error) {
	err := domain.ErrUnauthenticated
	for _, raw := range p.credentials(r) {
		var callerID string
		if callerID, err = p.tokens.Verify(raw); err == nil {
			return callerID, nil
		}
	}
	return "", err
}

// credentials lists the tokens carried by r in the order they are tried.
func (p *Provider) credentials(r *http.Request) []string {
	var raw []string
	if c, err := r.Cookie(p.cookieName); err == nil && c.Value != "" {
		raw = append(raw, c.Value)
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
		raw = append(raw, strings.TrimSpace(parts[1]))
	}
	return raw
}

// Middleware rejects requests without a valid caller and stores the caller
// id for CallerID.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerID, err := p.ResolveCaller(c.Request())
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Error: "not authenticated"})
				}
				return err
			}
			c.Set(callerKey, callerID)
			return next(c)
		}
	}
}

// CallerID returns the caller stored by Middleware, or "" when absent.
func CallerID(c echo.Context) string {
	id, _ := c.Get(callerKey).(string)
	return id
}

// SetCallerID stores callerID on c.
func SetCallerID(c echo.Context, callerID string) {
	c.Set(callerKey, callerID)
}

// SessionCookie builds the cookie carrying token.
func (p *Provider) SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     p.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.tokens.TTL().Seconds()),
	}
}

// ClearCookie builds a cookie that removes the session cookie.
func (p *Provider) ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     p.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
