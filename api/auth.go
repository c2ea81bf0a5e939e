package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/timesheet-engine/core"
)

// =============================================================================
// BEARER AUTH - resolves the calling actor from an HS256 token
// =============================================================================

type ctxKey int

const actorKey ctxKey = iota

// Claims carried by access tokens: sub is the user id, role one of
// employee, manager, admin.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate rejects requests without a valid bearer token and stores
// the actor in the request context.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := parseBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func parseBearer(header string, secret []byte) (core.Actor, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return core.Actor{}, errors.New("missing bearer token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return core.Actor{}, err
	}

	if claims.Subject == "" {
		return core.Actor{}, errors.New("token has no subject")
	}
	role, err := core.ParseRole(claims.Role)
	if err != nil {
		return core.Actor{}, err
	}
	return core.Actor{ID: claims.Subject, Role: role}, nil
}

func WithActor(ctx context.Context, actor core.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (core.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(core.Actor)
	return actor, ok
}

// SignToken issues a token for local runs and tests.
func SignToken(secret []byte, actor core.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
