package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/yourorg/videotube/internal/models"
	"github.com/yourorg/videotube/internal/repository"
	service "github.com/yourorg/videotube/internal/services"
	"github.com/yourorg/videotube/internal/token"
	"github.com/yourorg/videotube/internal/utils"
)

// fakeUserRepo is an in-memory stand-in implementing the same contract as the
// mongo repository, including compare-and-swap rotation and the aggregation
// read models.
type fakeUserRepo struct {
	users  map[primitive.ObjectID]*models.User
	subs   []models.Subscription
	videos map[primitive.ObjectID]*models.Video
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  map[primitive.ObjectID]*models.User{},
		videos: map[primitive.ObjectID]*models.Video{},
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	u.Username = strings.ToLower(u.Username)
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	for _, u := range f.users {
		if (username != "" && u.Username == strings.ToLower(username)) ||
			(email != "" && u.Email == strings.ToLower(email)) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) UpdateFields(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if email, ok := fields["email"].(string); ok {
		for oid, other := range f.users {
			if oid != id && other.Email == email {
				return nil, repository.ErrDuplicate
			}
		}
		u.Email = email
	}
	if fullname, ok := fields["fullname"].(string); ok {
		u.FullName = fullname
	}
	if avatar, ok := fields["avatar"].(string); ok {
		u.Avatar = avatar
	}
	if cover, ok := fields["coverImage"].(string); ok {
		u.CoverImage = cover
	}
	u.UpdatedAt = time.Now().UTC()
	return u, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeUserRepo) SetRefreshToken(_ context.Context, id primitive.ObjectID, tokenStr string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = tokenStr
	return nil
}

func (f *fakeUserRepo) ClearRefreshToken(_ context.Context, id primitive.ObjectID) error {
	if u, ok := f.users[id]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (f *fakeUserRepo) RotateRefreshToken(_ context.Context, id primitive.ObjectID, presented, next string) error {
	u, ok := f.users[id]
	if !ok || u.RefreshToken != presented {
		return repository.ErrStaleToken
	}
	u.RefreshToken = next
	return nil
}

func (f *fakeUserRepo) AddToWatchHistory(_ context.Context, id, videoID primitive.ObjectID) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	history := make([]primitive.ObjectID, 0, len(u.WatchHistory)+1)
	history = append(history, videoID)
	for _, existing := range u.WatchHistory {
		if existing != videoID {
			history = append(history, existing)
		}
	}
	u.WatchHistory = history
	return nil
}

func (f *fakeUserRepo) ChannelProfile(_ context.Context, username string, viewer primitive.ObjectID) (*models.ChannelProfile, error) {
	target, err := f.FindByUsernameOrEmail(context.Background(), strings.TrimSpace(username), "")
	if err != nil {
		return nil, err
	}
	profile := &models.ChannelProfile{
		FullName:   target.FullName,
		Username:   target.Username,
		Email:      target.Email,
		Avatar:     target.Avatar,
		CoverImage: target.CoverImage,
		CreatedAt:  target.CreatedAt,
	}
	for _, edge := range f.subs {
		if edge.Channel == target.ID {
			profile.SubscribersCount++
			if edge.Subscriber == viewer {
				profile.IsSubscribed = true
			}
		}
		if edge.Subscriber == target.ID {
			profile.ChannelSubscribedToCount++
		}
	}
	return profile, nil
}

func (f *fakeUserRepo) WatchHistory(_ context.Context, id primitive.ObjectID) ([]models.VideoView, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	views := make([]models.VideoView, 0, len(u.WatchHistory))
	for _, vid := range u.WatchHistory {
		v, ok := f.videos[vid]
		if !ok {
			continue
		}
		view := models.VideoView{
			ID:        v.ID,
			VideoFile: v.VideoFile,
			Thumbnail: v.Thumbnail,
			Title:     v.Title,
			Duration:  v.Duration,
			Views:     v.Views,
			CreatedAt: v.CreatedAt,
		}
		if owner, ok := f.users[v.Owner]; ok {
			view.Owner = models.VideoOwner{FullName: owner.FullName, Username: owner.Username, Avatar: owner.Avatar}
		}
		views = append(views, view)
	}
	return views, nil
}

func newAuthService(repo repository.UserRepository) *service.AuthService {
	tokens := token.NewManager("test-secret", 15*time.Minute, 240*time.Hour)
	return service.NewAuthService(repo, tokens, zap.NewNop().Sugar())
}

func register(t *testing.T, svc *service.AuthService, username string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), service.RegisterInput{
		FullName:  "Test User",
		Email:     username + "@example.com",
		Username:  username,
		Password:  "secret123",
		AvatarURL: "https://cdn.example.com/" + username + ".png",
	})
	require.NoError(t, err)
	return u
}

func assertStatus(t *testing.T, err error, code int) {
	t.Helper()
	var apiErr *utils.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

func TestRegisterNeverStoresPlaintextPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	u := register(t, svc, "chai")

	stored := repo.users[u.ID]
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NotContains(t, stored.Password, "secret123")

	public := u.Sanitize()
	assert.Equal(t, "chai", public.Username)
}

func TestRegisterDuplicateUsernameDifferentCase(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	register(t, svc, "chai")

	_, err := svc.Register(context.Background(), service.RegisterInput{
		FullName: "Other", Email: "other@example.com", Username: "CHAI", Password: "x",
	})
	assertStatus(t, err, 409)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	register(t, svc, "chai")

	_, _, _, err := svc.Login(context.Background(), "chai", "", "wrong")
	assertStatus(t, err, 401)
}

func TestLoginUnknownIdentifier(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	_, _, _, err := svc.Login(context.Background(), "ghost", "", "secret123")
	assertStatus(t, err, 404)
}

func TestLoginWithoutIdentifier(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	_, _, _, err := svc.Login(context.Background(), "", "", "secret123")
	assertStatus(t, err, 400)
}

func TestLoginByEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	u := register(t, svc, "chai")

	got, access, refresh, err := svc.Login(context.Background(), "", "chai@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, access)
	assert.Equal(t, refresh, repo.users[u.ID].RefreshToken)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	register(t, svc, "chai")

	_, _, r1, err := svc.Login(context.Background(), "chai", "", "secret123")
	require.NoError(t, err)

	_, r2, err := svc.Refresh(context.Background(), r1)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)

	// the consumed token is permanently invalid
	_, _, err = svc.Refresh(context.Background(), r1)
	assertStatus(t, err, 401)

	// the fresh one still works
	_, _, err = svc.Refresh(context.Background(), r2)
	require.NoError(t, err)
}

func TestRefreshAfterLogout(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	u := register(t, svc, "chai")

	_, _, r1, err := svc.Login(context.Background(), "chai", "", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), u.ID))
	assert.Empty(t, repo.users[u.ID].RefreshToken)

	_, _, err = svc.Refresh(context.Background(), r1)
	assertStatus(t, err, 401)
}

func TestRefreshWithEmptyToken(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	_, _, err := svc.Refresh(context.Background(), "")
	assertStatus(t, err, 401)
}

func TestRefreshWithGarbageToken(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	_, _, err := svc.Refresh(context.Background(), "not.a.token")
	assertStatus(t, err, 401)
}

func TestChangePassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	u := register(t, svc, "chai")

	err := svc.ChangePassword(context.Background(), u.ID, "wrong", "newpass123")
	assertStatus(t, err, 400)

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "secret123", "newpass123"))

	_, _, _, err = svc.Login(context.Background(), "chai", "", "secret123")
	assertStatus(t, err, 401)
	_, _, _, err = svc.Login(context.Background(), "chai", "", "newpass123")
	require.NoError(t, err)
}

func TestUpdateAccountDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	register(t, svc, "chai")
	u := register(t, svc, "mocha")

	_, err := svc.UpdateAccount(context.Background(), u.ID, "Mocha", "chai@example.com")
	assertStatus(t, err, 409)

	updated, err := svc.UpdateAccount(context.Background(), u.ID, "Mocha Latte", "mocha2@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Mocha Latte", updated.FullName)
	assert.Equal(t, "mocha2@example.com", updated.Email)
}

func TestIssueTokensUnknownUser(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	_, _, err := svc.IssueTokens(context.Background(), primitive.NewObjectID())
	assertStatus(t, err, 500)
}
