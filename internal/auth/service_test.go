package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/authctx"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/migrate"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/database"
)

func testConfig() Config {
	return Config{Secret: "test-secret", Issuer: "debts-test", AccessTTL: time.Minute, RefreshTTL: time.Hour}
}

func newTokens(t *testing.T, cfg Config) (*TokenService, *sqlx.DB) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:", Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrate.EnsureSchema(context.Background(), db))
	return NewTokenService(db, cfg), db
}

func TestIssueAndParse(t *testing.T) {
	tokens, _ := newTokens(t, testConfig())
	pair, err := tokens.Issue(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.EqualValues(t, 60, pair.ExpiresIn)
	assert.NotEmpty(t, pair.RefreshToken)

	sub, err := tokens.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
}

func TestRefreshRotates(t *testing.T) {
	tokens, _ := newTokens(t, testConfig())
	ctx := context.Background()
	first, err := tokens.Issue(ctx, "42")
	require.NoError(t, err)

	second, err := tokens.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	sub, err := tokens.ParseAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)

	_, err = tokens.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tokens.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshExpired(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTTL = -time.Minute
	tokens, db := newTokens(t, cfg)
	ctx := context.Background()
	pair, err := tokens.Issue(ctx, "42")
	require.NoError(t, err)

	_, err = tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(1) FROM refresh_sessions`))
	assert.Zero(t, n)
}

func TestRevoke(t *testing.T) {
	tokens, _ := newTokens(t, testConfig())
	ctx := context.Background()
	pair, err := tokens.Issue(ctx, "42")
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, tokens.Revoke(ctx, "unknown"))
	_, err = tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := testConfig()
	tokens, _ := newTokens(t, cfg)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(method, Claims{RegisteredClaims: claims}).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	wrongIssuer := valid
	wrongIssuer.Issuer = "elsewhere"
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	noSubject := valid
	noSubject.Subject = ""

	tests := map[string]string{
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong issuer": sign(jwt.SigningMethodHS256, []byte(cfg.Secret), wrongIssuer),
		"expired":      sign(jwt.SigningMethodHS256, []byte(cfg.Secret), expired),
		"no expiry":    sign(jwt.SigningMethodHS256, []byte(cfg.Secret), noExpiry),
		"no subject":   sign(jwt.SigningMethodHS256, []byte(cfg.Secret), noSubject),
		"wrong alg":    sign(jwt.SigningMethodHS512, []byte(cfg.Secret), valid),
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.ParseAccessToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := ConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REFRESH_TOKEN_TTL", "")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTTL)

	t.Setenv("REFRESH_TOKEN_TTL", "forever")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestRequireUser(t *testing.T) {
	tokens, _ := newTokens(t, testConfig())
	pair, err := tokens.Issue(context.Background(), "42")
	require.NoError(t, err)

	protected := RequireUser(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := authctx.UserID(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id))
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "basic", header: "Basic Zm9vOmJhcg==", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "42", rec.Body.String())
			} else {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}
