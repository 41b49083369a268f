package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/mail"
)

func TestActivationIssueGeneratesAlphanumericToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "issue@x.com")

	token, err := f.activation.Issue(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, token, DefaultActivationTokenLength)
	for _, r := range token {
		require.True(t, strings.ContainsRune(crypto.Alphanumeric, r), "unexpected symbol %q", r)
	}

	var record models.ActivationToken
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Take(&record).Error)
	require.False(t, record.IsUsed)
	require.NotEqual(t, token, record.TokenHash)
	require.True(t, record.ExpiresAt.Equal(f.clock.Now().Add(24*time.Hour)))
}

func TestActivationRedeemIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "redeem@x.com")
	ctx := context.Background()

	token, err := f.activation.Issue(ctx, user.ID)
	require.NoError(t, err)

	userID, err := f.activation.Redeem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	for i := 0; i < 3; i++ {
		_, err = f.activation.Redeem(ctx, token)
		require.ErrorIs(t, err, ErrActivationInvalid)
	}

	var record models.ActivationToken
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Take(&record).Error)
	require.True(t, record.IsUsed)
	require.NotNil(t, record.UsedAt)
}

func TestActivationRedeemExpired(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "expired@x.com")
	ctx := context.Background()

	token, err := f.activation.Issue(ctx, user.ID)
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour + time.Second)

	_, err = f.activation.Redeem(ctx, token)
	require.ErrorIs(t, err, ErrActivationExpired)

	var record models.ActivationToken
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Take(&record).Error)
	require.False(t, record.IsUsed)
}

func TestActivationRedeemAtExpiryBoundary(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "boundary@x.com")
	ctx := context.Background()

	token, err := f.activation.Issue(ctx, user.ID)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)

	userID, err := f.activation.Redeem(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestActivationRedeemUnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.activation.Redeem(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrActivationInvalid)

	_, err = f.activation.Redeem(context.Background(), "   ")
	require.ErrorIs(t, err, ErrActivationInvalid)
}

func TestActivationConcurrentRedeemSingleWinner(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "redeem-race@x.com")
	ctx := context.Background()

	token, err := f.activation.Issue(ctx, user.ID)
	require.NoError(t, err)

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.activation.Redeem(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if !errors.Is(err, ErrActivationInvalid) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
}

func TestActivationCustomGeneratorAndTTL(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "custom@x.com")

	svc, err := NewActivationService(f.db,
		WithActivationClock(f.clock.Now),
		WithActivationTTL(time.Hour),
		WithActivationTokenLength(12),
		WithActivationGenerator(func(length int) (string, error) {
			return strings.Repeat("Z", length), nil
		}),
	)
	require.NoError(t, err)
	require.Equal(t, time.Hour, svc.TTL())

	token, err := svc.Issue(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "ZZZZZZZZZZZZ", token)

	f.clock.Advance(2 * time.Hour)
	_, err = svc.Redeem(context.Background(), token)
	require.ErrorIs(t, err, ErrActivationExpired)
}

func TestActivationIssueGeneratorFailure(t *testing.T) {
	f := newAuthFixture(t)
	boom := errors.New("entropy exhausted")

	svc, err := NewActivationService(f.db, WithActivationGenerator(func(int) (string, error) {
		return "", boom
	}))
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), "user-1")
	require.ErrorIs(t, err, boom)
}

func TestActivationDeliverSendsLink(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.activation.Deliver(context.Background(), "link@x.com", "TOKEN123"))

	messages := f.mailer.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, []string{"link@x.com"}, messages[0].To)
	require.Contains(t, messages[0].Body, "https://auth.example.com/api/auth/activate?token=TOKEN123")
	require.Contains(t, messages[0].Body, "24 hours")
}

func TestActivationDeliverIgnoresDisabledSMTP(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.FailWith(mail.ErrSMTPDisabled)

	require.NoError(t, f.activation.Deliver(context.Background(), "link@x.com", "TOKEN123"))

	f.mailer.FailWith(errors.New("connection refused"))
	require.Error(t, f.activation.Deliver(context.Background(), "link@x.com", "TOKEN123"))
}

func TestActivationPurge(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "purge-activation@x.com")
	ctx := context.Background()

	_, err := f.activation.Issue(ctx, user.ID)
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	fresh, err := f.activation.Issue(ctx, user.ID)
	require.NoError(t, err)

	removed, err := f.activation.Purge(ctx, f.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	userID, err := f.activation.Redeem(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}
