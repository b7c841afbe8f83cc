package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/voicebot/voicebot/internal/auth"
	"github.com/voicebot/voicebot/internal/shared"
)

type fixture struct {
	client   *redis.Client
	repo     *auth.RedisRepository
	service  *auth.Service
	sessions *shared.SessionManager
}

func newFixture(t *testing.T, opts ...auth.Option) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := auth.NewRedisRepository(client)
	opts = append([]auth.Option{auth.WithHashCost(bcrypt.MinCost)}, opts...)
	return fixture{
		client:   client,
		repo:     repo,
		service:  auth.NewService(repo, opts...),
		sessions: shared.NewSessionManager(client, "test_session", "secret", time.Hour, false),
	}
}

func (f fixture) accounts(t *testing.T) int64 {
	t.Helper()
	n, err := f.client.HLen(context.Background(), shared.AccountsHashKey).Result()
	require.NoError(t, err)
	return n
}

func (f fixture) newSession(t *testing.T) *shared.Session {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	return sess
}

func validRegistration() auth.RegisterInput {
	return auth.RegisterInput{Name: "Ada", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret1"}
}

func TestRegisterSignsSessionIn(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	acct, err := f.service.Register(context.Background(), sess, validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)

	current := auth.Current(sess)
	require.NotNil(t, current)
	assert.Equal(t, "a@x.com", current.Email)
	assert.Equal(t, "Ada", current.Name)
	assert.Equal(t, acct.ID, sess.User())
	assert.Empty(t, current.PasswordHash, "hash must not leak into the session snapshot")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Register(context.Background(), f.newSession(t), validRegistration())
	require.NoError(t, err)

	sess := f.newSession(t)
	_, err = f.service.Register(context.Background(), sess, validRegistration())
	require.ErrorIs(t, err, shared.ErrDuplicateEmail)
	assert.Nil(t, auth.Current(sess))

	assert.EqualValues(t, 1, f.accounts(t))
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*auth.RegisterInput)
		want string
	}{
		{"short password", func(in *auth.RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, "Password must be at least 6 characters long"},
		{"mismatch", func(in *auth.RegisterInput) { in.ConfirmPassword = "other12" }, "Passwords do not match"},
		{"missing name", func(in *auth.RegisterInput) { in.Name = "  " }, "Please fill in all fields"},
		{"multibyte password over 72 bytes", func(in *auth.RegisterInput) {
			in.Password = strings.Repeat("é", 40)
			in.ConfirmPassword = in.Password
		}, "Password is too long"},
		{"empty and short", func(in *auth.RegisterInput) { in.Email, in.Password, in.ConfirmPassword = "", "abc", "abc" }, "Please fill in all fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := validRegistration()
			tc.mut(&in)
			sess := f.newSession(t)

			_, err := f.service.Register(context.Background(), sess, in)
			require.ErrorIs(t, err, shared.ErrValidation)
			var verr *auth.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.want, verr.First())
			assert.Nil(t, auth.Current(sess))

			assert.Zero(t, f.accounts(t))
		})
	}
}

func TestRegisterWithoutSession(t *testing.T) {
	f := newFixture(t)

	acct, err := f.service.Register(context.Background(), nil, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acct.Email)
	assert.EqualValues(t, 1, f.accounts(t))

	sess := f.newSession(t)
	_, err = f.service.Login(context.Background(), sess, auth.LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Register(context.Background(), f.newSession(t), validRegistration())
	require.NoError(t, err)

	t.Run("wrong password leaves session untouched", func(t *testing.T) {
		sess := f.newSession(t)
		_, err := f.service.Login(context.Background(), sess, auth.LoginInput{Email: "a@x.com", Password: "wrong12"})
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
		assert.Empty(t, sess.User())
		assert.Nil(t, auth.Current(sess))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.service.Login(context.Background(), f.newSession(t), auth.LoginInput{Email: "b@x.com", Password: "secret1"})
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.service.Login(context.Background(), f.newSession(t), auth.LoginInput{Email: "a@x.com"})
		var verr *auth.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Please enter both email and password", verr.First())
	})

	t.Run("success", func(t *testing.T) {
		sess := f.newSession(t)
		acct, err := f.service.Login(context.Background(), sess, auth.LoginInput{Email: " a@x.com ", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "Ada", acct.Name)
		require.NotNil(t, auth.Current(sess))
	})
}

func TestLogoutRunsHooksAndClearsSession(t *testing.T) {
	var forgotten []string
	hook := func(ctx context.Context, accountID string) error {
		forgotten = append(forgotten, accountID)
		return errors.New("hook failed")
	}
	f := newFixture(t, auth.WithLogoutHook(hook))
	sess := f.newSession(t)
	acct, err := f.service.Register(context.Background(), sess, validRegistration())
	require.NoError(t, err)

	err = f.service.Logout(context.Background(), sess)
	require.Error(t, err)
	assert.Equal(t, []string{acct.ID}, forgotten)
	assert.Empty(t, sess.User())
	assert.Nil(t, auth.Current(sess))

	require.NoError(t, f.service.Logout(context.Background(), sess), "anonymous logout skips hooks")
	assert.Len(t, forgotten, 1)
}
