package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
)

const (
	// UserIDKey holds the authenticated user's numeric id (uint).
	UserIDKey = "user_id"
	// IdentityKey holds the connection identity (domain.Identity).
	IdentityKey = "identity"
)

// ErrMissingAuthHeader reports a request carrying no token at all.
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// Auth returns a middleware that rejects requests without a valid JWT.
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Debug("Auth middleware: Missing Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			} else {
				logrus.Warnf("Auth middleware: Malformed token format: %v", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		userID, err := userIDFromToken(tokenStr, jwtSecret)
		if err != nil {
			logCtx := logrus.WithError(err)
			logCtx.Warn("Auth middleware: Invalid token")
			var validationError *jwt.ValidationError
			if errors.As(err, &validationError) && validationError.Errors&jwt.ValidationErrorExpired != 0 {
				logCtx.Debug("Reason: Token is expired")
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(IdentityKey, domain.NewUserIdentity(userID))
		logrus.WithField("user_id", userID).Debug("Auth middleware: User authenticated via JWT")
		c.Next()
	}
}

// OptionalAuth never rejects. A valid token yields the user's identity, a
// missing or invalid one yields the anonymous identity.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for OptionalAuth middleware")
	}

	return func(c *gin.Context) {
		identity := domain.AnonymousIdentity()
		if tokenStr, err := extractToken(c); err == nil {
			if userID, err := userIDFromToken(tokenStr, jwtSecret); err == nil {
				c.Set(UserIDKey, userID)
				identity = domain.NewUserIdentity(userID)
			} else {
				logrus.WithError(err).Debug("OptionalAuth middleware: Ignoring invalid token")
			}
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity set by Auth or OptionalAuth, anonymous if none.
func IdentityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return domain.AnonymousIdentity()
}

// UserIDFrom returns the authenticated user id set by Auth.
func UserIDFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := v.(uint)
	return userID, ok && userID > 0
}

// extractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter used by browser websocket clients.
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}

func validateToken(tokenStr string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}

// userIDFromToken validates tokenStr and returns its positive integer user_id claim.
func userIDFromToken(tokenStr, secret string) (uint, error) {
	claims, err := validateToken(tokenStr, secret)
	if err != nil {
		return 0, err
	}
	claim, ok := claims["user_id"]
	if !ok {
		return 0, errors.New("user_id claim missing")
	}
	f, ok := claim.(float64)
	if !ok || f <= 0 || f != float64(uint(f)) {
		return 0, fmt.Errorf("user_id claim is not a positive integer: %v", claim)
	}
	return uint(f), nil
}
