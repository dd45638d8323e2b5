// Package auth validates the HS256 access tokens issued by the account service.
//
// Tokens carry the username in "sub" and the user UUID in "id". They are read
// from the Authorization bearer header or, for browsers, the access_token cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/submission"
)

// CookieName is the cookie holding the access token.
const CookieName = "access_token"

// Claims is the access token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Authenticator verifies tokens signed with a shared secret.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an Authenticator for secret.
func New(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Validate parses token and returns the player it identifies. Every failure
// wraps submission.ErrUnauthenticated.
func (a *Authenticator) Validate(token string) (model.Player, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Player{}, fmt.Errorf("%w: token expired", submission.ErrUnauthenticated)
		}
		return model.Player{}, fmt.Errorf("%w: %w", submission.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return model.Player{}, fmt.Errorf("%w: invalid token", submission.ErrUnauthenticated)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil || id == uuid.Nil {
		return model.Player{}, fmt.Errorf("%w: token has no user id", submission.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return model.Player{}, fmt.Errorf("%w: token has no subject", submission.ErrUnauthenticated)
	}
	return model.Player{ID: id, Username: claims.Subject}, nil
}

// FromRequest extracts and validates the token carried by r.
func (a *Authenticator) FromRequest(r *http.Request) (model.Player, error) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			token = strings.TrimPrefix(c.Value, "Bearer ")
		}
	}
	if token == "" {
		return model.Player{}, fmt.Errorf("%w: no credentials", submission.ErrUnauthenticated)
	}
	return a.Validate(token)
}

// Sign issues a token for player valid for ttl. Used by tooling and tests;
// production tokens come from the account service.
func (a *Authenticator) Sign(player model.Player, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: player.ID.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

type ctxKey struct{}

// WithPlayer returns a context carrying player.
func WithPlayer(ctx context.Context, player model.Player) context.Context {
	return context.WithValue(ctx, ctxKey{}, player)
}

// PlayerFrom returns the player stored by WithPlayer.
func PlayerFrom(ctx context.Context) (model.Player, bool) {
	p, ok := ctx.Value(ctxKey{}).(model.Player)
	return p, ok
}
