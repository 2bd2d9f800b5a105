package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/yourorg/videotube/internal/models"
	"github.com/yourorg/videotube/internal/repository"
	"github.com/yourorg/videotube/internal/utils"
)

type ProfileService struct {
	users  repository.UserRepository
	subs   repository.SubscriptionRepository
	videos repository.VideoRepository
	log    *zap.SugaredLogger
}

func NewProfileService(users repository.UserRepository, subs repository.SubscriptionRepository, videos repository.VideoRepository, log *zap.SugaredLogger) *ProfileService {
	return &ProfileService{users: users, subs: subs, videos: videos, log: log}
}

// ChannelProfile builds the channel view for a viewer: subscriber counts and
// whether the viewer follows the channel, in one aggregation fetch.
func (s *ProfileService) ChannelProfile(ctx context.Context, viewerID primitive.ObjectID, username string) (*models.ChannelProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, utils.ErrBadRequest("username is missing")
	}
	profile, err := s.users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.ErrNotFound("channel does not exist")
		}
		return nil, err
	}
	return profile, nil
}

// WatchHistory returns the viewer's history in stored order, each video with
// its owner embedded as a single object.
func (s *ProfileService) WatchHistory(ctx context.Context, userID primitive.ObjectID) ([]models.VideoView, error) {
	views, err := s.users.WatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.ErrNotFound("user does not exist")
		}
		return nil, err
	}
	return views, nil
}

// RecordWatch prepends the video to the user's history.
func (s *ProfileService) RecordWatch(ctx context.Context, userID primitive.ObjectID, videoID string) error {
	vid, err := primitive.ObjectIDFromHex(videoID)
	if err != nil {
		return utils.ErrBadRequest("invalid video id")
	}
	if _, err := s.videos.FindByID(ctx, vid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrNotFound("video does not exist")
		}
		return err
	}
	return s.users.AddToWatchHistory(ctx, userID, vid)
}

// ToggleSubscription flips the viewer's edge to the channel and returns the
// resulting state. Subscribing to yourself is rejected.
func (s *ProfileService) ToggleSubscription(ctx context.Context, subscriberID primitive.ObjectID, channelUsername string) (bool, error) {
	if strings.TrimSpace(channelUsername) == "" {
		return false, utils.ErrBadRequest("username is missing")
	}
	channel, err := s.users.FindByUsernameOrEmail(ctx, channelUsername, "")
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, utils.ErrNotFound("channel does not exist")
		}
		return false, err
	}
	if channel.ID == subscriberID {
		return false, utils.ErrBadRequest("cannot subscribe to your own channel")
	}
	return s.subs.Toggle(ctx, subscriberID, channel.ID)
}
