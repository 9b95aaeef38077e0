package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge-app/taskforge-backend/config"
	"github.com/taskforge-app/taskforge-backend/internal/apperr"
	"github.com/taskforge-app/taskforge-backend/internal/auth/domain"
	"github.com/taskforge-app/taskforge-backend/internal/auth/repository"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// RevocationStore remembers refresh token ids that must no longer be
// accepted (logout, rotation). Entries expire together with the token.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// AuthService is the identity provider: it authenticates credentials and
// resolves bearer tokens to actor ids.
type AuthService struct {
	db      *sql.DB
	cfg     config.AuthConfig
	revoked RevocationStore
	now     func() time.Time
}

func NewAuthService(db *sql.DB, cfg config.AuthConfig, revoked RevocationStore) *AuthService {
	return &AuthService{db: db, cfg: cfg, revoked: revoked, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, email, fullName, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return repository.NewUserRepository(s.db).Create(ctx, email, fullName, string(hash))
}

func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := repository.NewUserRepository(s.db).GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, apperr.Unauthenticated("incorrect email or password")
	}
	return s.issuePair(user.ID)
}

// Refresh validates a refresh token, revokes it and issues a fresh pair, so
// each refresh token is single-use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, apperr.Unauthenticated("refresh token has been revoked")
	}

	if _, err := repository.NewUserRepository(s.db).GetByID(ctx, userID); err != nil {
		return TokenPair{}, err
	}

	if err := s.revokeClaims(ctx, claims); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(userID)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	_, claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return err
	}
	return s.revokeClaims(ctx, claims)
}

// ResolveActor maps a bearer access token to a user id. This is the only
// entry point the request middleware uses.
func (s *AuthService) ResolveActor(token string) (int64, error) {
	userID, _, err := s.parse(token, tokenTypeAccess)
	return userID, err
}

func (s *AuthService) issuePair(userID int64) (TokenPair, error) {
	access, err := s.issue(userID, tokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issue(userID, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) issue(userID int64, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) parse(tokenString, wantType string) (int64, *Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthenticated("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return 0, nil, apperr.Unauthenticated("invalid or expired token")
	}
	if claims.Type != wantType {
		return 0, nil, apperr.Unauthenticated("invalid token type")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, nil, apperr.Unauthenticated("invalid token subject")
	}
	return userID, claims, nil
}

func (s *AuthService) revokeClaims(ctx context.Context, claims *Claims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}
