package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/civicreport/civic-report-api/models"
)

// ErrMissingSecret is returned when tokens are requested without a signing secret
var ErrMissingSecret = errors.New("jwt secret is not configured")

// Claims are the JWT claims issued to a logged in user
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 access tokens
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
}

// Issue signs a token for the given user
func (t TokenIssuer) Issue(user models.User) (string, error) {
	if len(t.Secret) == 0 {
		return "", ErrMissingSecret
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
		},
	}).SignedString(t.Secret)
}

// Parse validates a signed token and returns its claims
func (t TokenIssuer) Parse(token string) (*Claims, error) {
	if len(t.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tk *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
