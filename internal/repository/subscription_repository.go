package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourorg/videotube/internal/models"
)

type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
	IsSubscribed(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
}

type mongoSubscriptionRepo struct {
	col *mongo.Collection
}

func NewSubscriptionRepo(col *mongo.Collection) SubscriptionRepository {
	return &mongoSubscriptionRepo{col: col}
}

// Toggle removes the edge if present, creates it otherwise. Returns the
// resulting subscribed state. The unique index on (subscriber, channel)
// absorbs concurrent double-inserts.
func (r *mongoSubscriptionRepo) Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	filter := bson.M{"subscriber": subscriber, "channel": channel}
	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	if res.DeletedCount > 0 {
		return false, nil
	}
	_, err = r.col.InsertOne(ctx, &models.Subscription{
		Subscriber: subscriber,
		Channel:    channel,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (r *mongoSubscriptionRepo) IsSubscribed(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"subscriber": subscriber, "channel": channel})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
