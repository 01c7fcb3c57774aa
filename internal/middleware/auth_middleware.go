package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/helpers"
	"github.com/ticketbay/ticketbay/internal/models"
)

func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Authorization header is missing.")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format.")
			c.Abort()
			return
		}

		secret := os.Getenv("JWT_SECRET")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid token claims.")
			c.Abort()
			return
		}

		email, _ := claims["email"].(string)
		if email == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Token does not carry an email.")
			c.Abort()
			return
		}

		if idStr, ok := claims["user_id"].(string); ok {
			if userID, err := uuid.Parse(idStr); err == nil {
				c.Set("user_id", userID)
			}
		}

		c.Set("email", email)
		c.Next()
	}
}

// RequireRole resolves the authenticated email to a stored user and refuses
// the request unless the role matches. Fraud-flagged accounts are refused
// regardless of role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, exists := c.Get("email")
		if !exists {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Email not found in token.")
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
			c.Abort()
			return
		}

		var user models.User
		if err := db.Where("email = ?", email).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				helpers.RespondWithError(c, http.StatusForbidden, "Account not found.")
			} else {
				helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading account.")
			}
			c.Abort()
			return
		}

		if user.IsFraud {
			helpers.RespondWithError(c, http.StatusForbidden, "Account is flagged and suspended.")
			c.Abort()
			return
		}

		if user.Role != role {
			helpers.RespondWithError(c, http.StatusForbidden, "Insufficient permissions.")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
