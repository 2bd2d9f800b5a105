package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/yourorg/videotube/internal/events"
	"github.com/yourorg/videotube/internal/metrics"
	"github.com/yourorg/videotube/internal/middleware"
	"github.com/yourorg/videotube/internal/models"
	service "github.com/yourorg/videotube/internal/services"
	"github.com/yourorg/videotube/internal/utils"
)

// AuthService is the session-lifecycle surface the handlers need.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, email, password string) (*models.User, string, string, error)
	Logout(ctx context.Context, userID primitive.ObjectID) error
	Refresh(ctx context.Context, presented string) (string, string, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error
	UpdateAccount(ctx context.Context, userID primitive.ObjectID, fullname, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID primitive.ObjectID, avatarURL string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID primitive.ObjectID, coverURL string) (*models.User, error)
}

// ProfileService is the read-model surface the handlers need.
type ProfileService interface {
	ChannelProfile(ctx context.Context, viewerID primitive.ObjectID, username string) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID primitive.ObjectID) ([]models.VideoView, error)
	RecordWatch(ctx context.Context, userID primitive.ObjectID, videoID string) error
	ToggleSubscription(ctx context.Context, subscriberID primitive.ObjectID, channelUsername string) (bool, error)
}

type MediaUploader interface {
	UploadImage(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error)
}

type UserHandler struct {
	auth     AuthService
	profiles ProfileService
	media    MediaUploader
	events   *events.Publisher
	log      *zap.SugaredLogger
	timeout  time.Duration
}

func NewUserHandler(auth AuthService, profiles ProfileService, media MediaUploader, pub *events.Publisher, log *zap.SugaredLogger, timeout time.Duration) *UserHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UserHandler{auth: auth, profiles: profiles, media: media, events: pub, log: log, timeout: timeout}
}

func (h *UserHandler) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), h.timeout)
}

// POST /register (multipart: fullname, email, username, password, avatar, coverImage?)
func (h *UserHandler) Register(c *fiber.Ctx) error {
	fullname := strings.TrimSpace(c.FormValue("fullname"))
	email := strings.TrimSpace(c.FormValue("email"))
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	for _, f := range []struct{ name, val string }{
		{"fullname", fullname}, {"email", email}, {"username", username}, {"password", password},
	} {
		if f.val == "" {
			return utils.ErrBadRequest(f.name + " is required")
		}
	}

	avatarHeader, err := c.FormFile("avatar")
	if err != nil {
		return utils.ErrBadRequest("avatar file is required")
	}
	if err := utils.ValidateImageHeader(avatarHeader); err != nil {
		return utils.ErrBadRequest(err.Error())
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	avatarURL, err := h.uploadImage(ctx, strings.ToLower(username), avatarHeader)
	if err != nil {
		return err
	}

	// cover image is optional; a failed upload must not fail registration
	coverURL := ""
	if coverHeader, err := c.FormFile("coverImage"); err == nil {
		if coverURL, err = h.uploadImage(ctx, strings.ToLower(username), coverHeader); err != nil {
			h.log.Warnw("cover image upload failed", "username", username, "error", err)
			coverURL = ""
		}
	}

	user, err := h.auth.Register(ctx, service.RegisterInput{
		FullName:      fullname,
		Email:         email,
		Username:      username,
		Password:      password,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	})
	if err != nil {
		return err
	}
	h.events.UserRegistered(user.ID.Hex(), user.Username)
	return utils.JSONSuccess(c, fiber.StatusCreated, user.Sanitize(), "user registered successfully")
}

// POST /login ({username|email, password})
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrBadRequest("invalid request body")
	}
	if body.Password == "" {
		return utils.ErrBadRequest("password is required")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	user, access, refresh, err := h.auth.Login(ctx, body.Username, body.Email, body.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	setAuthCookies(c, access, refresh)
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"user":         user.Sanitize(),
		"accessToken":  access,
		"refreshToken": refresh,
	}, "user logged in successfully")
}

// POST /logout
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.auth.Logout(ctx, user.ID); err != nil {
		return err
	}
	clearAuthCookies(c)
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{}, "user logged out")
}

// POST /refresh-token (cookie or {refreshToken})
func (h *UserHandler) RefreshToken(c *fiber.Ctx) error {
	presented := c.Cookies("refreshToken")
	if presented == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.BodyParser(&body); err == nil {
			presented = body.RefreshToken
		}
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	access, refresh, err := h.auth.Refresh(ctx, presented)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("failure").Inc()
		return err
	}
	metrics.RefreshTotal.WithLabelValues("success").Inc()

	setAuthCookies(c, access, refresh)
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"accessToken":  access,
		"refreshToken": refresh,
	}, "access token refreshed")
}

// POST /change-password ({oldPassword, newPassword})
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	var body struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrBadRequest("invalid request body")
	}
	if body.OldPassword == "" {
		return utils.ErrBadRequest("oldPassword is required")
	}
	if body.NewPassword == "" {
		return utils.ErrBadRequest("newPassword is required")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.auth.ChangePassword(ctx, user.ID, body.OldPassword, body.NewPassword); err != nil {
		return err
	}
	h.events.PasswordChanged(user.ID.Hex())
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{}, "password changed successfully")
}

// GET /current-user
func (h *UserHandler) GetCurrentUser(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, user.Sanitize(), "current user fetched successfully")
}

// PATCH /update-account ({fullname, email})
func (h *UserHandler) UpdateAccount(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	var body struct {
		FullName string `json:"fullname"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrBadRequest("invalid request body")
	}
	if strings.TrimSpace(body.FullName) == "" {
		return utils.ErrBadRequest("fullname is required")
	}
	if strings.TrimSpace(body.Email) == "" {
		return utils.ErrBadRequest("email is required")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	updated, err := h.auth.UpdateAccount(ctx, user.ID, body.FullName, body.Email)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, updated.Sanitize(), "account details updated successfully")
}

// PATCH /update-avatar (multipart: avatar)
func (h *UserHandler) UpdateAvatar(c *fiber.Ctx) error {
	return h.updateImage(c, "avatar", "avatar file is missing", func(ctx context.Context, id primitive.ObjectID, url string) (*models.User, error) {
		return h.auth.UpdateAvatar(ctx, id, url)
	})
}

// PATCH /update-coverimage (multipart: coverImage)
func (h *UserHandler) UpdateCoverImage(c *fiber.Ctx) error {
	return h.updateImage(c, "coverImage", "coverImage file is missing", func(ctx context.Context, id primitive.ObjectID, url string) (*models.User, error) {
		return h.auth.UpdateCoverImage(ctx, id, url)
	})
}

func (h *UserHandler) updateImage(c *fiber.Ctx, field, missingMsg string, apply func(context.Context, primitive.ObjectID, string) (*models.User, error)) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	header, err := c.FormFile(field)
	if err != nil {
		return utils.ErrBadRequest(missingMsg)
	}
	if err := utils.ValidateImageHeader(header); err != nil {
		return utils.ErrBadRequest(err.Error())
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	url, err := h.uploadImage(ctx, user.ID.Hex(), header)
	if err != nil {
		return err
	}
	updated, err := apply(ctx, user.ID, url)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, updated.Sanitize(), field+" updated successfully")
}

// GET /c/:username
func (h *UserHandler) GetChannelProfile(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	profile, err := h.profiles.ChannelProfile(ctx, user.ID, c.Params("username"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, profile, "user channel fetched successfully")
}

// POST /c/:username/subscribe
func (h *UserHandler) ToggleSubscription(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	subscribed, err := h.profiles.ToggleSubscription(ctx, user.ID, c.Params("username"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"subscribed": subscribed}, "subscription updated")
}

// GET /history
func (h *UserHandler) GetWatchHistory(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	views, err := h.profiles.WatchHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, views, "watch history fetched successfully")
}

// POST /history/:videoId
func (h *UserHandler) RecordWatch(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.ErrUnauthorized("unauthorized request")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.profiles.RecordWatch(ctx, user.ID, c.Params("videoId")); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{}, "watch recorded")
}

func (h *UserHandler) uploadImage(ctx context.Context, owner string, header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", utils.ErrInternal("cannot open uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", utils.ErrInternal("cannot read uploaded file")
	}
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	url, err := h.media.UploadImage(ctx, owner, header.Filename, ct, data)
	if err != nil {
		var apiErr *utils.APIError
		if errors.As(err, &apiErr) {
			return "", apiErr
		}
		return "", utils.ErrInternal("image upload failed")
	}
	return url, nil
}

func setAuthCookies(c *fiber.Ctx, access, refresh string) {
	c.Cookie(&fiber.Cookie{Name: "accessToken", Value: access, Path: "/", HTTPOnly: true, Secure: true})
	c.Cookie(&fiber.Cookie{Name: "refreshToken", Value: refresh, Path: "/", HTTPOnly: true, Secure: true})
}

func clearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(&fiber.Cookie{Name: "accessToken", Value: "", Path: "/", HTTPOnly: true, Secure: true, Expires: expired})
	c.Cookie(&fiber.Cookie{Name: "refreshToken", Value: "", Path: "/", HTTPOnly: true, Secure: true, Expires: expired})
}
