package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// verifiedTokenTTL bounds how long a verified token is served from cache
// before its JWT is parsed again
const verifiedTokenTTL = 10 * time.Minute

// ErrTokenRevoked is returned for tokens that were logged out
var ErrTokenRevoked = errors.New("token has been revoked")

// Authenticator verifies bearer JWTs through go-guardian and tracks revoked tokens
type Authenticator struct {
	Tokens        TokenIssuer
	authenticator auth.Authenticator
	strategy      auth.Strategy
	revoked       store.Cache
}

// NewAuthenticator sets up the go-guardian bearer strategy backed by JWT validation
func NewAuthenticator(ctx context.Context, tokens TokenIssuer) *Authenticator {
	a := &Authenticator{Tokens: tokens}

	revokedTTL := tokens.TTL
	if revokedTTL <= 0 {
		revokedTTL = 24 * time.Hour
	}
	a.revoked = store.NewFIFO(ctx, revokedTTL)

	cache := store.NewFIFO(ctx, verifiedTokenTTL)
	a.strategy = bearer.New(a.verifyToken, cache)
	a.authenticator = auth.New()
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, a.strategy)
	return a
}

func (a *Authenticator) verifyToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	if _, revoked, _ := a.revoked.Load(token, r); revoked {
		return nil, ErrTokenRevoked
	}
	claims, err := a.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return auth.NewDefaultUser(claims.Email, claims.UserID, []string{claims.Role}, nil), nil
}

// Middleware rejects requests without a valid bearer token and stores the caller
// on the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		// browsers cannot set headers on websocket upgrades
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}

		user, err := a.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Debugw("unauthorized",
				"url", r.URL.Path,
				"error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}

		id, err := primitive.ObjectIDFromHex(user.ID())
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		p := Principal{UserID: id, Email: user.UserName()}
		if groups := user.Groups(); len(groups) > 0 {
			p.Role = groups[0]
		}

		zap.S().Debugw("user authenticated", "userId", p.UserID.Hex(), "role", p.Role)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RevokeToken logs out the bearer token carried by the request
func (a *Authenticator) RevokeToken(r *http.Request) error {
	token := BearerToken(r)
	if token == "" {
		return errors.New("missing bearer token")
	}
	a.revoked.Store(token, true, r)
	auth.Revoke(a.strategy, token, r)
	return nil
}

// BearerToken extracts the raw token from the Authorization header
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
