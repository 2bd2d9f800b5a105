package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/videotube/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate key")
	ErrStaleToken = errors.New("stored token does not match")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error
	RotateRefreshToken(ctx context.Context, id primitive.ObjectID, presented, next string) error
	AddToWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error
	ChannelProfile(ctx context.Context, username string, viewer primitive.ObjectID) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoView, error)
}

type mongoUserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(col *mongo.Collection) UserRepository {
	return &mongoUserRepo{col: col}
}

func (r *mongoUserRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	u.Username = strings.ToLower(u.Username)
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return u, nil
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": strings.ToLower(username)})
	}
	if email != "" {
		or = append(or, bson.M{"email": strings.ToLower(email)})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}
	var u models.User
	err := r.col.FindOne(ctx, bson.M{"$or": or}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"refreshToken": token}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"refreshToken": ""}})
	return err
}

// RotateRefreshToken swaps the stored refresh token only when the stored value
// still equals the presented one. A zero match means the token was already
// rotated or cleared.
func (r *mongoUserRepo) RotateRefreshToken(ctx context.Context, id primitive.ObjectID, presented, next string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "refreshToken": presented},
		bson.M{"$set": bson.M{"refreshToken": next}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleToken
	}
	return nil
}

// AddToWatchHistory moves videoID to the front of the history list.
func (r *mongoUserRepo) AddToWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error {
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"watchHistory": videoID}}); err != nil {
		return err
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"watchHistory": bson.M{"$each": bson.A{videoID}, "$position": 0}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) ChannelProfile(ctx context.Context, username string, viewer primitive.ObjectID) (*models.ChannelProfile, error) {
	cur, err := r.col.Aggregate(ctx, channelProfilePipeline(username, viewer))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var profile models.ChannelProfile
	if err := cur.Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

type watchHistoryRow struct {
	WatchHistory []primitive.ObjectID `bson:"watchHistory"`
	Videos       []models.VideoView   `bson:"videos"`
}

func (r *mongoUserRepo) WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoView, error) {
	cur, err := r.col.Aggregate(ctx, watchHistoryPipeline(id))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var row watchHistoryRow
	if err := cur.Decode(&row); err != nil {
		return nil, err
	}
	return orderByHistory(row.WatchHistory, row.Videos), nil
}

// channelProfilePipeline joins both subscription directions in one fetch and
// projects only public channel fields.
func channelProfilePipeline(username string, viewer primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": strings.ToLower(strings.TrimSpace(username))}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "subscriptions",
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "subscriptions",
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":         bson.M{"$size": "$subscribers"},
			"channelSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed": bson.M{
				"$in": bson.A{viewer, "$subscribers.subscriber"},
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"fullname":                 1,
			"username":                 1,
			"email":                    1,
			"subscribersCount":         1,
			"channelSubscribedToCount": 1,
			"isSubscribed":             1,
			"avatar":                   1,
			"coverImage":               1,
			"createdAt":                1,
		}}},
	}
}

// watchHistoryPipeline resolves the history id list and joins each video with
// a single-object owner projection, all in one fetch. The id list is kept in
// the output so the stored order can be restored after the join.
func watchHistoryPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "videos",
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "videos",
			"pipeline": bson.A{
				bson.M{"$lookup": bson.M{
					"from":         "users",
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
					"pipeline": bson.A{
						bson.M{"$project": bson.M{
							"fullname": 1,
							"username": 1,
							"avatar":   1,
						}},
					},
				}},
				bson.M{"$addFields": bson.M{
					"owner": bson.M{"$first": "$owner"},
				}},
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"watchHistory": 1,
			"videos":       1,
		}}},
	}
}

// orderByHistory returns views in the order of ids; $lookup does not
// guarantee the local array order.
func orderByHistory(ids []primitive.ObjectID, views []models.VideoView) []models.VideoView {
	byID := make(map[primitive.ObjectID]models.VideoView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	out := make([]models.VideoView, 0, len(views))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
