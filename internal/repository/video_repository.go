package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourorg/videotube/internal/models"
)

type VideoRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Video, error)
}

type mongoVideoRepo struct {
	col *mongo.Collection
}

func NewVideoRepo(col *mongo.Collection) VideoRepository {
	return &mongoVideoRepo{col: col}
}

func (r *mongoVideoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Video, error) {
	var v models.Video
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
