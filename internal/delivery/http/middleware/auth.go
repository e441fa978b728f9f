package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ProfileIDKey is the gin context key holding the authenticated profile id.
const ProfileIDKey = "profile_id"

var ErrUnauthorized = errors.New("unauthorized")

type AuthMiddleware struct {
	secret []byte
	issuer string
}

func NewAuthMiddleware(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// RequireAuth validates the bearer access token. Browsers cannot set headers
// on a websocket handshake, so the token is also read from the "token" query
// parameter.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("token")
		}

		profileID, err := m.ParseAccessToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  "unauthorized",
			})
			return
		}

		c.Set(ProfileIDKey, profileID)
		c.Next()
	}
}

// ParseAccessToken checks an HS256 token and returns the profile id carried
// in its subject.
func (m *AuthMiddleware) ParseAccessToken(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || token == nil || !token.Valid {
		return 0, ErrUnauthorized
	}

	profileID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || profileID <= 0 {
		return 0, ErrUnauthorized
	}
	return profileID, nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
