package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/logging"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Guest  bool   `json:"guest"`
}

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub any, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func echoHandler(c echo.Context) error {
	id, ok := c.Get(CtxUserIDKey).(int64)
	role, _ := c.Get(CtxUserRoleKey).(model.Role)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: id, Role: string(role), Guest: !ok})
}

func serve(mw echo.MiddlewareFunc, authz string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/x", echoHandler, mw)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT_ValidToken(t *testing.T) {
	tok := signToken(t, validClaims("42", "ADMIN"), jwt.SigningMethodHS256, testSecret)

	rec := serve(AuthJWT(testSecret), "Bearer "+tok)
	require.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, "admin", body.Role)
}

func TestAuthJWT_NumericSub(t *testing.T) {
	tok := signToken(t, validClaims(7, "driver"), jwt.SigningMethodHS256, testSecret)
	rec := serve(AuthJWT(testSecret), "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthJWT_Rejects(t *testing.T) {
	expired := jwt.MapClaims{"sub": "1", "role": "customer", "exp": time.Now().Add(-time.Minute).Unix()}

	cases := []struct {
		name  string
		authz string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer  "},
		{"wrong secret", "Bearer " + signToken(t, validClaims("1", "customer"), jwt.SigningMethodHS256, "other")},
		{"wrong method", "Bearer " + signToken(t, validClaims("1", "customer"), jwt.SigningMethodHS384, testSecret)},
		{"expired", "Bearer " + signToken(t, expired, jwt.SigningMethodHS256, testSecret)},
		{"unknown role", "Bearer " + signToken(t, validClaims("1", "root"), jwt.SigningMethodHS256, testSecret)},
		{"bad sub", "Bearer " + signToken(t, validClaims("abc", "customer"), jwt.SigningMethodHS256, testSecret)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(AuthJWT(testSecret), tc.authz)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestOptionalAuthJWT(t *testing.T) {
	rec := serve(OptionalAuthJWT(testSecret), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body mwOKResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Guest)

	// 付いているなら検証する
	rec = serve(OptionalAuthJWT(testSecret), "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", echoHandler, AuthJWT(testSecret), RequireRole(model.RoleAdmin))

	do := func(role string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("9", role), jwt.SigningMethodHS256, testSecret))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("admin"))
	assert.Equal(t, http.StatusForbidden, do("customer"))
	assert.Equal(t, http.StatusForbidden, do("driver"))

	// AuthJWTを通っていなければ401
	rec := serve(RequireRole(model.RoleAdmin), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger_WritesOneLinePerRequest(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside handler")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	for _, path := range []string{"/ok", "/boom"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(echo.HeaderXRequestID, "req-"+path[1:])
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-ok", inside[0].ContextMap()["request_id"])

	lines := logs.FilterMessage("request").All()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(http.StatusNoContent), lines[0].ContextMap()["status"])
	assert.Equal(t, zap.ErrorLevel, lines[1].Level)
}

func TestRequestLogger_StartsServerSpanAndLogsTraceIDs(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	core, logs := observer.New(zap.DebugLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/orders/:id", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside handler")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/7", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /orders/:id", spans[0].Name())
	assert.Equal(t, oteltrace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), inside[0].ContextMap()["trace_id"])
	assert.Equal(t, spans[0].SpanContext().SpanID().String(), inside[0].ContextMap()["span_id"])
}
