package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextTokenKey = "bearer_token"

var (
	errMissingAuth = errors.New("missing authorization header")
	errBadAuth     = errors.New("invalid authorization header")
	errBadToken    = errors.New("invalid token")
)

// BearerAuth requires an "Authorization: Bearer <token>" header. With an
// empty secret only the header shape is checked; otherwise the token must be
// a valid HS256 JWT signed with secret.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			err = verifyToken(tok, secret)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ContextTokenKey, tok)
		c.Next()
	}
}

// QueryTokenAuth is BearerAuth for WebSocket upgrades, where browsers cannot
// set headers: the token comes from ?token=, falling back to the header.
func QueryTokenAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := strings.TrimSpace(c.Query("token"))
		var err error
		if tok == "" {
			tok, err = bearerToken(c.GetHeader("Authorization"))
		}
		if err == nil {
			err = verifyToken(tok, secret)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ContextTokenKey, tok)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errMissingAuth
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errBadAuth
	}
	return parts[1], nil
}

func verifyToken(tok, secret string) error {
	if tok == "" {
		return errMissingAuth
	}
	if secret == "" {
		return nil
	}
	token, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return errBadToken
	}
	return nil
}
