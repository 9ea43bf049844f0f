package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatstream/internal/auth"
	"github.com/xiaot623/gogo/chatstream/internal/config"
	"github.com/xiaot623/gogo/chatstream/internal/domain"
	"github.com/xiaot623/gogo/chatstream/internal/observability"
	"github.com/xiaot623/gogo/chatstream/internal/policy"
	"github.com/xiaot623/gogo/chatstream/internal/repository"
	"github.com/xiaot623/gogo/chatstream/internal/service"
)

type testEnv struct {
	e      *echo.Echo
	h      *Handler
	svc    *service.Service
	store  *repository.SQLiteStore
	tokens *auth.Tokens
}

func newTestHandler(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		DefaultModel:       "gpt-4o-mini",
		DefaultTemperature: 0.3,
		TurnMaxDurationMs:  5000,
		AllowedModels:      []string{"gpt-4o", "gpt-4o-mini"},
		CookieName:         "access_token",
	}
	db := repository.NewTestSQLiteStore(t)
	fallback := llm.NewFallbackSource(0)
	sources := llm.Sources{Primary: fallback, Fallback: fallback, Models: llm.StaticModels(llm.DefaultModels)}
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, cfg.AllowedModels)
	require.NoError(t, err)
	tokens := auth.NewTokens("secret", time.Hour)

	svc := service.New(db, sources, cfg, policyEngine, tokens, observability.NewMetrics(), zerolog.Nop())
	h := NewHandler(svc, auth.NewProvider(tokens, cfg.CookieName), false, zerolog.Nop())

	e := echo.New()
	e.Validator = NewValidator()
	h.RegisterRoutes(e)
	return &testEnv{e: e, h: h, svc: svc, store: db, tokens: tokens}
}

// do sends a request through the router. A non-empty userID is authenticated
// with a bearer token.
func (env *testEnv) do(t *testing.T, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		token, err := env.tokens.Issue(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	user, err := env.svc.Register(context.Background(), email, "secret1")
	require.NoError(t, err)
	return user.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHelloAndHealth(t *testing.T) {
	e := echo.New()
	env := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, env.h.Hello(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello World"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, env.h.Health(e.NewContext(req, rec)))
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrSessionNotFound))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.ErrModelNotAllowed))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrEmailTaken))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
