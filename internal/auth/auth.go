// Package auth assigns anonymous visitors a stable user id carried in a signed cookie.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"moodwave/internal/config"
	"moodwave/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const UserContextKey contextKey = "user_id"

const issuer = "moodwave"

// Claims identify a visitor; the subject is their user id
type Claims struct {
	jwt.RegisteredClaims
}

// Identity mints and verifies identity cookies
type Identity struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// NewIdentity creates an Identity after validating cfg
func NewIdentity(cfg config.IdentityConfig) (*Identity, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Identity{
		secret:     cfg.Secret,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		now:        time.Now,
	}, nil
}

// GenerateToken signs a token for userID
func (id *Identity) GenerateToken(userID string) (string, error) {
	now := id.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(id.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(id.secret)
}

// ValidateToken verifies tokenString and returns its user id
func (id *Identity) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return id.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(id.now),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("token subject is not a user id")
	}
	return claims.Subject, nil
}

// Middleware resolves the visitor's user id from the cookie, minting a new id
// and cookie for first visits or unusable cookies.
func (id *Identity) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID string
		if c, err := r.Cookie(id.cookieName); err == nil {
			if uid, err := id.ValidateToken(c.Value); err == nil {
				userID = uid
			} else {
				logger.Log.WithError(err).Debug("Rejected identity cookie")
			}
		}

		if userID == "" {
			userID = uuid.New().String()
			token, err := id.GenerateToken(userID)
			if err != nil {
				logger.Log.WithError(err).Error("Error signing identity cookie")
				http.Error(w, "identity unavailable", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     id.cookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(id.ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			logger.ForUser(userID).Info("Assigned new visitor identity")
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	}
}

// WithUserID stores userID in ctx
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}

// UserIDFromContext returns the user id placed by Middleware
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey).(string)
	return userID, ok && userID != ""
}
