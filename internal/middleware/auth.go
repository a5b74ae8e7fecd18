package middleware

import (
	"net/http"
	"strings"

	"subhlabh/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
	OwnerKey  = "owner_id"

	accessToken = "access"
)

// JWTClaims are the custom claims embedded in every token.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenLookup finds an access token outside the Authorization header, such
// as in a browser session cookie. It returns "" when there is none.
type TokenLookup func(r *http.Request) string

// JWTAuth validates the access token on every protected route and stores the
// owning shop user id in the context. The Bearer header wins; fallback, when
// set, is consulted only for requests without one.
func JWTAuth(secret string, fallback TokenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string
		header := c.GetHeader("Authorization")
		switch {
		case strings.HasPrefix(header, "Bearer "):
			tokenStr = strings.TrimPrefix(header, "Bearer ")
		case header == "" && fallback != nil:
			tokenStr = fallback(c.Request)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("token is invalid or expired"))
			return
		}
		if claims.Type != accessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("an access token is required"))
			return
		}
		owner, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("malformed token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(OwnerKey, owner)
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// OwnerID returns the authenticated shop user id. Only valid behind JWTAuth.
func OwnerID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(OwnerKey).(uuid.UUID)
	return id
}
