package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/api"
	"github.com/charlesng35/authcore/internal/app"
	iauth "github.com/charlesng35/authcore/internal/auth"
	sharedtestutil "github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/middleware"
	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/internal/monitoring/checks"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/mail"
	"github.com/charlesng35/authcore/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Auth   *iauth.AuthService
	Users  *services.UserService
	Mailer *mail.MemoryMailer
	Config *app.Config
}

// EnvOption customises the configuration used by NewEnv.
type EnvOption func(*app.Config)

// WithRateLimit enables the rate limiter with the supplied budget.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				AccessSecret:    "test-suite-access-secret-32-bytes!!",
				RefreshSecret:   "test-suite-refresh-secret-32-bytes!",
				Issuer:          "test-suite",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 24 * time.Hour,
			},
			Activation: app.ActivationSettings{TTL: 24 * time.Hour, TokenLength: 32},
		},
		Server: app.ServerConfig{PublicURL: "https://auth.example.com"},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	tokens, err := iauth.NewTokenIssuer(cfg.Auth.TokenIssuerConfig())
	require.NoError(t, err)

	sessions, err := iauth.NewSessionStore(db)
	require.NoError(t, err)

	mailer := mail.NewMemoryMailer()
	activation, err := iauth.NewActivationService(db, cfg.Auth.ActivationOptions(mailer, cfg.Server.PublicURL)...)
	require.NoError(t, err)

	authSvc, err := iauth.NewAuthService(iauth.Dependencies{
		Users:      users,
		Tokens:     tokens,
		Sessions:   sessions,
		Activation: activation,
	})
	require.NoError(t, err)

	mon, err := monitoring.NewModule(monitoring.Options{Namespace: "handlers_test"})
	require.NoError(t, err)
	mon.Health().RegisterReadiness(checks.Database(db, time.Second))

	router, err := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Auth:       authSvc,
		Users:      users,
		RateStore:  middleware.NewMemoryRateStore(),
		Monitoring: mon,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		Auth:   authSvc,
		Users:  users,
		Mailer: mailer,
		Config: cfg,
	}
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// TokenPair mirrors the refresh response payload.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	User UserPayload `json:"user"`
	TokenPair
}

// Register creates an account through the API and returns the activation token that was emailed.
func (e *Env) Register(email, password string) (UserPayload, string) {
	e.T.Helper()

	before := len(e.Mailer.Messages())
	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var user UserPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &user)

	messages := e.Mailer.Messages()
	require.Len(e.T, messages, before+1)
	return user, ActivationTokenFrom(e.T, messages[len(messages)-1])
}

// Login authenticates and returns the issued token pair.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.NotEmpty(e.T, result.RefreshToken)
	return result
}

var activationTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9]+)`)

// ActivationTokenFrom extracts the activation token from an activation email.
func ActivationTokenFrom(t *testing.T, msg mail.Message) string {
	t.Helper()
	match := activationTokenPattern.FindStringSubmatch(msg.Body)
	require.Len(t, match, 2, msg.Body)
	return match[1]
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and the bearer token.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return e.RequestWithHeaders(method, path, body, headers)
}

// RequestWithHeaders executes an HTTP request with arbitrary headers.
func (e *Env) RequestWithHeaders(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
