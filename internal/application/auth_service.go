package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
	"github.com/alaklabs/goacl/pkg/helpers"
)

// Login failures share one sentinel so callers cannot distinguish an
// unknown username from a wrong password.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotActive      = errors.New("user account deactivated")
	ErrPermissionDenied   = errors.New("permission denied")
)

// PasswordHasher is the credential hashing contract consumed by the
// orchestrators. The bcrypt implementation lives in pkg/helpers.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenPair is the access/refresh pair returned by Login.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// Service hosts the request-shaped orchestrators: Login, Register,
// Refresh, and AuthorizeAction. It owns the authoritative sequencing
// and error taxonomy; transports map the sentinels to status codes.
type Service struct {
	Repo     repository.IdentityRepository
	Hasher   PasswordHasher
	JWT      *helpers.JWTManager
	Resolver *PermissionResolver
	Logger   *logrus.Logger
}

func NewService(repo repository.IdentityRepository, hasher PasswordHasher, jwt *helpers.JWTManager, resolver *PermissionResolver, logger *logrus.Logger) *Service {
	return &Service{Repo: repo, Hasher: hasher, JWT: jwt, Resolver: resolver, Logger: logger}
}

// Register creates a new identity. The returned entity carries the
// password hash for internal callers; transports must never serialize
// it.
func (s *Service) Register(ctx context.Context, username, email, password string) (*entity.Identity, error) {
	if u, err := s.Repo.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if u != nil {
		return nil, repository.ErrAlreadyExists
	}
	if u, err := s.Repo.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, repository.ErrAlreadyExists
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	// The repository re-checks uniqueness atomically; the lookups above
	// only save a bcrypt round on the common collision path.
	created, err := s.Repo.Create(ctx, username, email, hash)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithField("identity_id", created.ID).Info("identity registered")
	}
	return created, nil
}

// Login authenticates the username/password pair and issues an
// access/refresh token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*entity.Identity, TokenPair, error) {
	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if u == nil || !s.Hasher.Verify(password, u.PasswordHash) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, TokenPair{}, ErrUserNotActive
	}
	pair, err := s.issuePair(u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *Service) issuePair(u *entity.Identity) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Username)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, u.Username)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: rexp,
	}, nil
}

// Refresh verifies a refresh token and issues a new access token. The
// refresh token itself is not rotated; single-use rotation is a
// documented extension point.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	// Reload the identity: deactivation since issuance invalidates the
	// token regardless of its signature.
	u, err := s.Repo.GetByID(ctx, claims.Subject)
	if err != nil {
		return "", time.Time{}, err
	}
	if u == nil || !u.Active {
		return "", time.Time{}, helpers.ErrInvalidToken
	}
	return s.JWT.GenerateAccessToken(u.ID, u.Username)
}

// AuthorizeAction verifies the access token and checks the requested
// permission against the subject's effective set.
func (s *Service) AuthorizeAction(ctx context.Context, accessToken, permission string) (*helpers.Claims, error) {
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	ok, err := s.Resolver.HasPermission(ctx, claims.Subject, permission)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}
	return claims, nil
}

// UpdateProfile applies a partial identity update in one atomic
// repository call.
func (s *Service) UpdateProfile(ctx context.Context, identityID string, upd entity.IdentityUpdate) (*entity.Identity, error) {
	return s.Repo.Update(ctx, identityID, upd)
}

// SetActive toggles the soft-deactivation flag. Identities are never
// physically deleted here.
func (s *Service) SetActive(ctx context.Context, identityID string, active bool) (*entity.Identity, error) {
	return s.Repo.Update(ctx, identityID, entity.IdentityUpdate{Active: &active})
}
