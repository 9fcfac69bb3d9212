package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"form-workflow-api/models"
	"form-workflow-api/services"
)

const actorKey = "actor"

type Claims struct {
	UserID uint     `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and loads the caller as a services.Actor.
// The user must still exist and be active. Roles come from the stored user row.
func AuthMiddleware(secret []byte, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).
			Where("user_id = ? AND is_active = ?", claims.UserID, true).
			First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		roles := effectiveRoles(user.Role, claims.Roles)

		actor := services.Actor{
			UserID:    user.UserID,
			Roles:     roles,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: c.GetString(requestIDKey),
		}

		c.Set(actorKey, actor)
		c.Set("userID", user.UserID)
		c.Set("email", user.Email)
		if user.Department != nil {
			c.Set("department", *user.Department)
		}

		c.Next()
	}
}

// effectiveRoles grants the stored role. Roles listed in the token can only narrow it:
// a token that does not list the stored role grants nothing.
func effectiveRoles(stored models.Role, tokenRoles []string) []models.Role {
	if stored == "" {
		return nil
	}
	if len(tokenRoles) == 0 {
		return []models.Role{stored}
	}
	for _, raw := range tokenRoles {
		if role, ok := models.ParseRole(raw); ok && role == stored {
			return []models.Role{stored}
		}
	}
	return nil
}

// ActorFrom returns the actor set by AuthMiddleware.
func ActorFrom(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// RequireRole lets the request through when the actor holds any of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			return
		}
		if !actor.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
