package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"buildledger/pkg/domain"
)

const actorContextKey = "actor"

// GenerateToken creates a signed token for an actor. Used by tests and by
// operators minting service credentials.
func GenerateToken(actor domain.Actor, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  actor.ID,
		"role": string(actor.Role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseToken validates a token and extracts the actor.
func parseToken(tokenStr, secret string) (domain.Actor, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return domain.Actor{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Actor{}, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return domain.Actor{}, jwt.ErrTokenMalformed
	}
	return domain.Actor{ID: sub, Role: domain.Role(role)}, nil
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// AuthMiddleware resolves the acting party from a bearer token and stores it
// in the request context for handlers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}
		actor, err := parseToken(token, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// actorFrom returns the authenticated actor placed by AuthMiddleware.
func actorFrom(c *gin.Context) domain.Actor {
	v, _ := c.Get(actorContextKey)
	actor, _ := v.(domain.Actor)
	return actor
}
