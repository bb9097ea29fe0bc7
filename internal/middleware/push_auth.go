package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Maksimka7878/gorod/internal/httpx"
)

type PushClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// PushAuthRequired guards the push inbox: only senders holding a valid
// HS256 token signed with PUSH_JWT_SECRET may post notifications.
func PushAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return httpx.Unauthorized(c, "missing_push_token", "Missing push token")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
		}
		tokenString := parts[1]

		token, err := jwt.ParseWithClaims(tokenString, &PushClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(os.Getenv("PUSH_JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			return httpx.Unauthorized(c, "invalid_push_token", "Invalid or expired token")
		}

		claims, ok := token.Claims.(*PushClaims)
		if !ok {
			return httpx.Unauthorized(c, "invalid_push_token", "Invalid token")
		}
		if claims.Scope != "" && claims.Scope != "push" {
			return httpx.Forbidden(c, "wrong_scope", "Token not valid for push")
		}

		c.Locals("sender", claims.Subject)

		return c.Next()
	}
}
