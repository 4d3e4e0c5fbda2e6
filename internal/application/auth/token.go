package auth

import (
	"errors"
	"time"

	"wheelhub-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 24 * time.Hour

// Claims carries the identity in a bearer token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenIssuer signs and checks HS256 bearer tokens for non-browser clients.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

func (t *TokenIssuer) Issue(id *domain.Identity) (string, error) {
	if len(t.Secret) == 0 {
		return "", ErrTokenSecretMissing
	}
	if id == nil || id.UserID == "" {
		return "", ErrNotAuthenticated
	}
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
		},
		Name:  id.Name,
		Email: id.Email,
	})
	return token.SignedString(t.Secret)
}

// Parse validates the signature, algorithm and expiry and returns the identity.
func (t *TokenIssuer) Parse(tokenString string) (*domain.Identity, error) {
	if len(t.Secret) == 0 {
		return nil, ErrTokenSecretMissing
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrNotAuthenticated
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{UserID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

func (t *TokenIssuer) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
