package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. Expiry is distinguished from every other
// failure because an expired access token may warrant a refresh-flow
// retry while an invalid one never should.
var (
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// Token kinds embedded in the "kind" claim. An access endpoint must
// reject a presented refresh token and vice versa.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// JWTManager issues and verifies signed, time-bounded tokens carrying
// identity claims. The signing secret and algorithm are immutable for
// the process lifetime; rotating either invalidates every unexpired
// token.
type JWTManager struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Claims struct {
	Username string `json:"username"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTManager builds a manager for the given HMAC algorithm (HS256,
// HS384, HS512). Config validation rejects anything else; an
// unrecognized identifier falls back to HS256 rather than panicking.
func NewJWTManager(secret, algorithm string, accessTTL, refreshTTL time.Duration) *JWTManager {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		method = jwt.SigningMethodHS256
	}
	return &JWTManager{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used by tests to pin issuance
// and verification to a deterministic instant.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) GenerateAccessToken(subjectID, username string) (string, time.Time, error) {
	return m.generate(subjectID, username, TokenKindAccess, m.accessTTL)
}

func (m *JWTManager) GenerateRefreshToken(subjectID, username string) (string, time.Time, error) {
	return m.generate(subjectID, username, TokenKindRefresh, m.refreshTTL)
}

func (m *JWTManager) generate(subjectID, username, kind string, ttl time.Duration) (string, time.Time, error) {
	issued := m.now()
	exp := issued.Add(ttl)
	claims := &Claims{
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(m.method, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TokenKindAccess)
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TokenKindRefresh)
}

func (m *JWTManager) parse(tokenStr, wantKind string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// The configured method exactly, not just any HMAC variant.
		if token.Method != m.method {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tkn.Valid || claims.Subject == "" || claims.Kind != wantKind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
