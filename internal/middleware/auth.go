package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
)

// ContextUserKey is where the authenticated user lands in the gin
// context.
const ContextUserKey = "user"

// TokenVerifier validates dashboard JWTs. Token issuance lives outside
// this service; only verification happens here.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a TokenVerifier over a shared HMAC secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify checks the signature and returns the subject user id.
func (v *TokenVerifier) Verify(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, errors.New("missing subject")
	}
	return int(sub), nil
}

// AuthMiddleware validates the Authorization header and loads the
// requester, permission bundle included, into the context.
func AuthMiddleware(verifier *TokenVerifier, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.Get(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// CurrentUser extracts the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) models.User {
	if val, ok := c.Get(ContextUserKey); ok {
		if user, ok := val.(models.User); ok {
			return user
		}
	}
	return models.User{}
}
