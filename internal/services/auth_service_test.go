package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, h *harness) *models.Account {
	t.Helper()
	a, err := h.repo.Create(context.Background(), NewTestAccount("acc-1", "ada@example.com", "Secret123!", t0))
	require.NoError(t, err)
	return a
}

func loginInput(password string) LoginInput {
	return LoginInput{
		Email:    "Ada@Example.com",
		Password: password,
		Device: models.DeviceInfo{
			UserAgent:  strPtr("Mozilla/5.0"),
			IPAddress:  strPtr("203.0.113.7"),
			DeviceType: models.DeviceDesktop,
		},
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)

	resp, err := h.auth.Login(context.Background(), loginInput("Secret123!"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, t0.Add(15*time.Minute), resp.ExpiresAt)
	assert.Equal(t, "acc-1", resp.Account.ID)

	claims, err := h.tm.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)

	a, err := h.accounts.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Metrics.LoginCount)
	assert.True(t, account.IsOnline(a))
	assert.Equal(t, models.DeviceDesktop, a.Device.DeviceType)

	attempts := h.attempts.Recorded()
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, "ada@example.com", attempts[0].Email)
	assert.Equal(t, t0.Add(30*24*time.Hour), attempts[0].ExpiresAt)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	h := newHarness(t)

	resp, err := h.auth.Login(context.Background(), loginInput("Secret123!"))

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
	attempts := h.attempts.Recorded()
	require.Len(t, attempts, 1)
	assert.Nil(t, attempts[0].AccountID)
	require.NotNil(t, attempts[0].FailureReason)
	assert.Equal(t, models.FailureInvalidCredentials, *attempts[0].FailureReason)
}

func TestAuthService_Login_EmptyCredentials(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Login(context.Background(), LoginInput{Email: " ", Password: ""})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Empty(t, h.attempts.Recorded())
}

func TestAuthService_Login_BlockedStatus(t *testing.T) {
	tests := []struct {
		status models.Status
		want   error
	}{
		{models.StatusSuspended, models.ErrAccountSuspended},
		{models.StatusInactive, models.ErrAccountInactive},
		{models.StatusDeleted, models.ErrAccountDeleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := newHarness(t)
			seedAccount(t, h)
			_, err := h.accounts.ChangeStatus(context.Background(), "acc-1", tt.status, nil)
			require.NoError(t, err)

			_, err = h.auth.Login(context.Background(), loginInput("Secret123!"))

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_Login_WrongPasswordCounts(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)

	_, err := h.auth.Login(context.Background(), loginInput("Wrong123!"))
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	a, err := h.accounts.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Lock.LoginAttempts)
	assert.Nil(t, a.Lock.LockUntil)
	assert.Equal(t, int64(1), a.Metrics.FailedLoginAttempts)
	assert.Equal(t, models.AuditActionLoginFailed, a.AuditLog[len(a.AuditLog)-1].Action)
}

func TestAuthService_Login_LockoutLifecycle(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		h.clock.Advance(time.Second)
		_, err := h.auth.Login(ctx, loginInput("Wrong123!"))
		assert.ErrorIs(t, err, models.ErrUnauthorized, "attempt %d", i)
	}
	lockedAt := h.clock.Now()

	a, err := h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, a.Lock.LockUntil)
	assert.Equal(t, lockedAt.Add(2*time.Hour), *a.Lock.LockUntil)
	assert.Equal(t, []string{"acc-1"}, h.notifier.Notified())

	// The right password does not help while locked
	h.clock.Advance(time.Hour)
	_, err = h.auth.Login(ctx, loginInput("Secret123!"))
	assert.ErrorIs(t, err, models.ErrAccountLocked)

	a, err = h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Metrics.LoginCount)

	// Nor does a wrong one extend the lock or notify again
	_, err = h.auth.Login(ctx, loginInput("Wrong123!"))
	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Len(t, h.notifier.Notified(), 1)

	h.clock.Set(lockedAt.Add(2*time.Hour + time.Second))
	resp, err := h.auth.Login(ctx, loginInput("Secret123!"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	a, err = h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Lock.LoginAttempts)
	assert.Nil(t, a.Lock.LockUntil)
	assert.Equal(t, int64(1), a.Metrics.LoginCount)
}

func TestAuthService_Login_ReplacesOpenSession(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)
	ctx := context.Background()

	_, err := h.auth.Login(ctx, loginInput("Secret123!"))
	require.NoError(t, err)
	h.clock.Advance(90 * time.Second)
	_, err = h.auth.Login(ctx, loginInput("Secret123!"))
	require.NoError(t, err)

	a, err := h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Metrics.LoginCount)
	assert.Equal(t, int64(1), a.Metrics.SessionCount)
	assert.Equal(t, 90*time.Second, a.Metrics.TotalSessionTime)
	assert.True(t, account.HasOpenSession(a))
	assert.Equal(t, t0.Add(90*time.Second), *a.Session.Started)
}

func TestAuthService_Logout(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)
	ctx := context.Background()

	err := h.auth.Logout(ctx, "acc-1")
	assert.ErrorIs(t, err, models.ErrNoOpenSession)

	_, err = h.auth.Login(ctx, loginInput("Secret123!"))
	require.NoError(t, err)
	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.auth.Logout(ctx, "acc-1"))

	a, err := h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, account.IsOnline(a))
	assert.Equal(t, 30*time.Second, a.Metrics.AverageSessionDuration)
}

func TestAuthService_Logout_RevokesSessionToken(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)
	ctx := context.Background()

	protected := auth.AuthMiddleware(h.tm, h.repo, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec.Code
	}

	first, err := h.auth.Login(ctx, loginInput("Secret123!"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, call(first.AccessToken))

	h.clock.Advance(90 * time.Second)
	require.NoError(t, h.auth.Logout(ctx, "acc-1"))
	assert.Equal(t, http.StatusUnauthorized, call(first.AccessToken))
	assert.ErrorIs(t, h.auth.Logout(ctx, "acc-1"), models.ErrNoOpenSession)

	h.clock.Advance(time.Minute)
	second, err := h.auth.Login(ctx, loginInput("Secret123!"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, call(second.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, call(first.AccessToken))
}

func TestAuthService_ChangePassword(t *testing.T) {
	h := newHarness(t)
	seedAccount(t, h)
	ctx := context.Background()

	_, err := h.auth.ChangePassword(ctx, "acc-1", "Wrong123!", "NewSecret456!", nil)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = h.auth.ChangePassword(ctx, "acc-1", "Secret123!", "weak", nil)
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)

	h.clock.Advance(time.Minute)
	resp, err := h.auth.ChangePassword(ctx, "acc-1", "Secret123!", "NewSecret456!", strPtr("203.0.113.7"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	a, err := h.accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "plain:NewSecret456!", a.PasswordHash)
	assert.Equal(t, int64(1), a.Metrics.PasswordChanges)
	assert.True(t, account.ChangedPasswordAfter(a, t0))

	_, err = h.auth.Login(ctx, loginInput("NewSecret456!"))
	assert.NoError(t, err)
}
