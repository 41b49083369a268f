package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/mail"
)

const testPassword = "pw123456"

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

type authFixture struct {
	db         *gorm.DB
	clock      *testClock
	users      *services.UserService
	tokens     *TokenIssuer
	sessions   *SessionStore
	activation *ActivationService
	mailer     *mail.MemoryMailer
	service    *AuthService
}

func newAuthFixture(t *testing.T, sessionOpts ...SessionStoreOption) *authFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	tokens := newTestIssuer(t, clock)

	sessions, err := NewSessionStore(db, append([]SessionStoreOption{WithSessionClock(clock.Now)}, sessionOpts...)...)
	require.NoError(t, err)

	mailer := mail.NewMemoryMailer()
	activation, err := NewActivationService(db,
		WithActivationClock(clock.Now),
		WithActivationMailer(mailer),
		WithActivationBaseURL("https://auth.example.com/"),
	)
	require.NoError(t, err)

	service, err := NewAuthService(Dependencies{
		Users:      users,
		Tokens:     tokens,
		Sessions:   sessions,
		Activation: activation,
	})
	require.NoError(t, err)

	return &authFixture{
		db:         db,
		clock:      clock,
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		activation: activation,
		mailer:     mailer,
		service:    service,
	}
}

func newTestIssuer(t *testing.T, clock *testClock) *TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "authcore",
		Clock:         clock.Now,
	})
	require.NoError(t, err)
	return issuer
}

func (f *authFixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	user, err := f.users.Create(t.Context(), services.CreateUserInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return user
}

func (f *authFixture) activeSessions(t *testing.T, userID string) []models.UserSession {
	t.Helper()

	var sessions []models.UserSession
	require.NoError(t, f.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&sessions).Error)
	return sessions
}
