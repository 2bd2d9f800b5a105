package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/videotube/internal/models"
	"github.com/yourorg/videotube/internal/repository"
	"github.com/yourorg/videotube/internal/token"
	"github.com/yourorg/videotube/internal/utils"
)

// TokenSigner issues and verifies the session token pair.
type TokenSigner interface {
	SignAccess(u *models.User) (string, error)
	SignRefresh(userID string) (string, error)
	Verify(tokenStr string) (*token.Claims, error)
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenSigner
	log    *zap.SugaredLogger
}

func NewAuthService(users repository.UserRepository, tokens TokenSigner, log *zap.SugaredLogger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

type RegisterInput struct {
	FullName      string
	Email         string
	Username      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.users.FindByUsernameOrEmail(ctx, username, email); err == nil {
		return nil, utils.ErrConflict("user already exists with this username or email")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &models.User{
		Username:   username,
		Email:      email,
		FullName:   in.FullName,
		Password:   string(hash),
		Avatar:     in.AvatarURL,
		CoverImage: in.CoverImageURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.ErrConflict("user already exists with this username or email")
		}
		return nil, err
	}
	return created, nil
}

// Login resolves the user by username or email and returns the sanitized user
// plus a fresh token pair.
func (s *AuthService) Login(ctx context.Context, username, email, password string) (*models.User, string, string, error) {
	if username == "" && email == "" {
		return nil, "", "", utils.ErrBadRequest("username or email is required")
	}
	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", "", utils.ErrNotFound("user does not exist")
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", "", utils.ErrUnauthorized("password is incorrect")
	}
	access, refresh, err := s.IssueTokens(ctx, user.ID)
	if err != nil {
		return nil, "", "", err
	}
	return user, access, refresh, nil
}

// IssueTokens signs a token pair and persists the refresh token on the user.
func (s *AuthService) IssueTokens(ctx context.Context, userID primitive.ObjectID) (string, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", "", utils.ErrInternal("could not generate access and refresh tokens")
	}
	access, err := s.tokens.SignAccess(user)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.tokens.SignRefresh(user.ID.Hex())
	if err != nil {
		return "", "", err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return "", "", utils.ErrInternal("could not generate access and refresh tokens")
	}
	return access, refresh, nil
}

// Logout clears the stored refresh token. Unknown ids are a no-op.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	return s.users.ClearRefreshToken(ctx, userID)
}

// Refresh rotates the token pair. The presented token must verify and must
// equal the stored value; the swap itself is an atomic conditional update so
// a replayed token loses even under concurrency.
func (s *AuthService) Refresh(ctx context.Context, presented string) (string, string, error) {
	if presented == "" {
		return "", "", utils.ErrUnauthorized("unauthorized request")
	}
	claims, err := s.tokens.Verify(presented)
	if err != nil {
		return "", "", utils.ErrUnauthorized("invalid refresh token")
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", "", utils.ErrUnauthorized("invalid refresh token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", "", utils.ErrUnauthorized("invalid refresh token")
	}
	if user.RefreshToken == "" || user.RefreshToken != presented {
		return "", "", utils.ErrUnauthorized("refresh token is expired or used")
	}

	access, err := s.tokens.SignAccess(user)
	if err != nil {
		return "", "", err
	}
	next, err := s.tokens.SignRefresh(user.ID.Hex())
	if err != nil {
		return "", "", err
	}
	if err := s.users.RotateRefreshToken(ctx, user.ID, presented, next); err != nil {
		if errors.Is(err, repository.ErrStaleToken) {
			return "", "", utils.ErrUnauthorized("refresh token is expired or used")
		}
		return "", "", err
	}
	return access, next, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrNotFound("user does not exist")
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return utils.ErrBadRequest("invalid old password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *AuthService) UpdateAccount(ctx context.Context, userID primitive.ObjectID, fullname, email string) (*models.User, error) {
	updated, err := s.users.UpdateFields(ctx, userID, bson.M{
		"fullname": fullname,
		"email":    strings.ToLower(strings.TrimSpace(email)),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.ErrConflict("email is already in use")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.ErrNotFound("user does not exist")
		}
		return nil, err
	}
	return updated, nil
}

func (s *AuthService) UpdateAvatar(ctx context.Context, userID primitive.ObjectID, avatarURL string) (*models.User, error) {
	return s.updateImageField(ctx, userID, "avatar", avatarURL)
}

func (s *AuthService) UpdateCoverImage(ctx context.Context, userID primitive.ObjectID, coverURL string) (*models.User, error) {
	return s.updateImageField(ctx, userID, "coverImage", coverURL)
}

func (s *AuthService) updateImageField(ctx context.Context, userID primitive.ObjectID, field, url string) (*models.User, error) {
	updated, err := s.users.UpdateFields(ctx, userID, bson.M{field: url})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.ErrNotFound("user does not exist")
		}
		return nil, err
	}
	return updated, nil
}
