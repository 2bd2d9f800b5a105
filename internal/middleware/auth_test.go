package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yourorg/videotube/internal/middleware"
	"github.com/yourorg/videotube/internal/models"
	"github.com/yourorg/videotube/internal/repository"
	"github.com/yourorg/videotube/internal/token"
	"github.com/yourorg/videotube/internal/utils"
)

// singleUserRepo resolves exactly one user by id.
type singleUserRepo struct {
	user *models.User
}

func (r *singleUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, repository.ErrNotFound
}

func (r *singleUserRepo) Create(context.Context, *models.User) (*models.User, error) {
	return nil, repository.ErrDuplicate
}

func (r *singleUserRepo) FindByUsernameOrEmail(context.Context, string, string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (r *singleUserRepo) UpdateFields(context.Context, primitive.ObjectID, bson.M) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (r *singleUserRepo) UpdatePassword(context.Context, primitive.ObjectID, string) error {
	return nil
}

func (r *singleUserRepo) SetRefreshToken(context.Context, primitive.ObjectID, string) error {
	return nil
}

func (r *singleUserRepo) ClearRefreshToken(context.Context, primitive.ObjectID) error { return nil }

func (r *singleUserRepo) RotateRefreshToken(context.Context, primitive.ObjectID, string, string) error {
	return nil
}

func (r *singleUserRepo) AddToWatchHistory(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}

func (r *singleUserRepo) ChannelProfile(context.Context, string, primitive.ObjectID) (*models.ChannelProfile, error) {
	return nil, repository.ErrNotFound
}

func (r *singleUserRepo) WatchHistory(context.Context, primitive.ObjectID) ([]models.VideoView, error) {
	return nil, nil
}

func newAuthApp(t *testing.T) (*fiber.App, *token.Manager, *models.User) {
	t.Helper()
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "chai",
		Email:    "chai@example.com",
	}
	mgr := token.NewManager("test-secret", time.Minute, time.Hour)

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	app.Get("/me", middleware.RequireAuth(mgr, &singleUserRepo{user: user}), func(c *fiber.Ctx) error {
		u, ok := middleware.CurrentUser(c)
		require.True(t, ok)
		return c.SendString(u.Username)
	})
	return app, mgr, user
}

func TestRequireAuthNoToken(t *testing.T) {
	app, _, _ := newAuthApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthCookie(t *testing.T) {
	app, mgr, user := newAuthApp(t)

	access, err := mgr.SignAccess(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireAuthBearer(t *testing.T) {
	app, mgr, user := newAuthApp(t)

	access, err := mgr.SignAccess(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireAuthGarbageToken(t *testing.T) {
	app, _, _ := newAuthApp(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "not-a-jwt"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthUnknownUser(t *testing.T) {
	app, mgr, _ := newAuthApp(t)

	stranger := &models.User{ID: primitive.NewObjectID(), Username: "ghost"}
	access, err := mgr.SignAccess(stranger)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
