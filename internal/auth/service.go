package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

var ErrInvalidToken = errors.New("invalid token")

type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ConfigFromEnv reads JWT_SECRET, JWT_ISSUER, ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Secret: utilities.GetEnvString("JWT_SECRET", ""),
		Issuer: utilities.GetEnvString("JWT_ISSUER", "debts"),
	}
	if cfg.Secret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	var err error
	if cfg.AccessTTL, err = utilities.GetEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = utilities.GetEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Claims carried by access tokens. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues HS256 access tokens and opaque, rotating refresh tokens.
type TokenService struct {
	db  *sqlx.DB
	cfg Config
}

func NewTokenService(db *sqlx.DB, cfg Config) *TokenService {
	return &TokenService{db: db, cfg: cfg}
}

// Issue creates an access token and persists a new refresh session for userID.
func (s *TokenService) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	refreshes := repo.NewRefreshRepo(s.db)
	if _, err := refreshes.DeleteExpired(ctx, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("sweep refresh sessions: %w", err)
	}
	return s.issue(ctx, refreshes, userID)
}

func (s *TokenService) issue(ctx context.Context, refreshes *repo.RefreshRepo, userID string) (*TokenPair, error) {
	now := time.Now().UTC()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		ID:        utilities.NewKSUID(),
	}}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	refresh := base64.RawURLEncoding.EncodeToString(raw)
	if err := refreshes.Save(ctx, hashToken(refresh), userID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return nil, fmt.Errorf("save refresh session: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Refresh consumes a refresh token and issues a new pair for the same user.
// A token can be used once.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	var pair *TokenPair
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		refreshes := repo.NewRefreshRepo(tx)
		sess, err := refreshes.Take(ctx, hashToken(refreshToken))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInvalidToken
			}
			return err
		}
		if sess.ExpiresAt.Before(time.Now()) {
			// commit so the expired row is gone
			return nil
		}
		pair, err = s.issue(ctx, refreshes, sess.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrInvalidToken
	}
	return pair, nil
}

// Revoke removes a refresh session. Unknown tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	return repo.NewRefreshRepo(s.db).Delete(ctx, hashToken(refreshToken))
}

// ParseAccessToken validates an access token and returns its subject.
func (s *TokenService) ParseAccessToken(token string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
