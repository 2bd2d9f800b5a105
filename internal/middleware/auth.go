package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yourorg/videotube/internal/models"
	"github.com/yourorg/videotube/internal/repository"
	"github.com/yourorg/videotube/internal/token"
	"github.com/yourorg/videotube/internal/utils"
)

const UserLocal = "user"

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	Verify(tokenStr string) (*token.Claims, error)
}

// RequireAuth accepts the access token from the accessToken cookie or an
// Authorization bearer header, resolves the user, and stores it in Locals.
func RequireAuth(tokens TokenVerifier, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies("accessToken")
		if tokenStr == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				tokenStr = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if tokenStr == "" {
			return utils.ErrUnauthorized("unauthorized request")
		}
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			return utils.ErrUnauthorized("invalid access token")
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return utils.ErrUnauthorized("invalid access token")
		}
		user, err := users.FindByID(c.Context(), userID)
		if err != nil {
			return utils.ErrUnauthorized("invalid access token")
		}
		c.Locals(UserLocal, user)
		return c.Next()
	}
}

// CurrentUser reads the authenticated user set by RequireAuth.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	u, ok := c.Locals(UserLocal).(*models.User)
	return u, ok
}
