package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-debts-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Avatars produces and removes profile pictures.
type Avatars interface {
	Generate(seed string) (string, error)
	Remove(picture string)
}

const (
	StatusActive   = "active"
	StatusLocked   = "locked"
	StatusDisabled = "disabled"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrLocked         = errors.New("user locked")
	ErrDisabled       = errors.New("user disabled")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrEmailTaken     = errors.New("email already registered")
)

// UserService orchestrates authentication and user lifecycle flows.
type UserService struct {
	db      *sqlx.DB
	repo    *userrepo.UserRepo
	hasher  PasswordHasher
	avatars Avatars
	logger  *zap.SugaredLogger
	// configuration knobs
	MaxFailed    int
	LockDuration time.Duration
}

func NewUserService(db *sqlx.DB, hasher PasswordHasher, avatars Avatars, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{
		db:           db,
		repo:         userrepo.NewUserRepo(db),
		hasher:       hasher,
		avatars:      avatars,
		logger:       logger,
		MaxFailed:    6,
		LockDuration: 15 * time.Minute,
	}
}

// SignupUser registers a real user with a password and a generated avatar.
func (s *UserService) SignupUser(ctx context.Context, email, name, password string) (*entity.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if normalized == "" || name == "" {
		return nil, errors.New("email and name required")
	}
	if _, err := s.repo.GetByEmail(ctx, normalized); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, algo, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	id := utilities.NewSnowflakeID()
	picture, err := s.avatars.Generate(id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &entity.User{
		ID:           id,
		Email:        &normalized,
		Name:         name,
		Picture:      picture,
		PasswordHash: &hash,
		PasswordAlgo: &algo,
		Status:       StatusActive,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.avatars.Remove(picture)
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user signed up", "user_id", u.ID)
	return u, nil
}

// AuthenticatePassword checks email and password. Repeated failures lock the
// account for LockDuration; an expired lock is lifted on the next attempt.
func (s *UserService) AuthenticatePassword(ctx context.Context, email, password string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}

	if u.Status == StatusLocked && u.LockedUntil != nil && u.LockedUntil.Before(time.Now()) {
		if err := s.repo.Unlock(ctx, u.ID); err != nil {
			return nil, err
		}
		u.Status = StatusActive
		u.LockedUntil = nil
	}

	switch u.Status {
	case StatusLocked:
		return nil, ErrLocked
	case StatusDisabled:
		return nil, ErrDisabled
	}
	if u.Virtual || u.PasswordHash == nil || *u.PasswordHash == "" {
		return nil, ErrBadCredentials
	}

	if !s.hasher.Verify(*u.PasswordHash, password) {
		if incErr := s.repo.IncrementFailedLogin(ctx, u.ID); incErr == nil {
			locked, _ := s.repo.LockIfThreshold(ctx, u.ID, s.MaxFailed, time.Now().UTC().Add(s.LockDuration))
			if locked {
				s.logger.Warnw("user locked after failed logins", "user_id", u.ID)
			}
		}
		return nil, ErrBadCredentials
	}

	if err := s.repo.ResetLoginSuccess(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Search lists real users whose name starts with name, excluding the caller.
func (s *UserService) Search(ctx context.Context, actorID, name string, limit int) ([]entity.Public, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	found, err := s.repo.SearchReal(ctx, strings.ToLower(strings.TrimSpace(name)), limit+1)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Public, 0, len(found))
	for _, u := range found {
		if u.ID == actorID || len(out) == limit {
			continue
		}
		out = append(out, u.Public())
	}
	return out, nil
}
