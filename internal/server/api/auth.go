package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
)

const (
	actorContextKey = "actor"

	// SystemUser is the audit actor when operator auth is disabled.
	SystemUser = "system"
)

// Claims carried by operator bearer tokens.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 operator token valid for ttl.
func GenerateToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user")
	}
	return claims, nil
}

// AuthMiddleware resolves the operator behind a request and stores it as the
// audit actor. An empty secret disables verification and every request acts
// as SystemUser.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Set(actorContextKey, service.Actor{UserID: SystemUser, IP: c.ClientIP()})
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			respondError(c, "authenticate", fmt.Errorf("%w: missing bearer token", ErrUnauthorized))
			return
		}

		claims, err := parseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			respondError(c, "authenticate", fmt.Errorf("%w: %v", ErrUnauthorized, err))
			return
		}

		c.Set(actorContextKey, service.Actor{UserID: claims.UserID, IP: c.ClientIP()})
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{UserID: SystemUser, IP: c.ClientIP()}
}
