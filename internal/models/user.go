package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the stored shape. Password and RefreshToken never leave the
// process: responses go through Sanitize.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	FullName     string               `bson:"fullname" json:"fullname"`
	Password     string               `bson:"password" json:"-"`
	Avatar       string               `bson:"avatar" json:"avatar"`
	CoverImage   string               `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	RefreshToken string               `bson:"refreshToken,omitempty" json:"-"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory,omitempty" json:"-"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the credential-free projection returned to clients.
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u *User) Sanitize() *PublicUser {
	return &PublicUser{
		ID:         u.ID.Hex(),
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
	}
}

// ChannelProfile is the aggregation output for GET /users/c/:username.
type ChannelProfile struct {
	FullName                 string    `bson:"fullname" json:"fullname"`
	Username                 string    `bson:"username" json:"username"`
	Email                    string    `bson:"email" json:"email"`
	SubscribersCount         int64     `bson:"subscribersCount" json:"subscribersCount"`
	ChannelSubscribedToCount int64     `bson:"channelSubscribedToCount" json:"channelSubscribedToCount"`
	IsSubscribed             bool      `bson:"isSubscribed" json:"isSubscribed"`
	Avatar                   string    `bson:"avatar" json:"avatar"`
	CoverImage               string    `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	CreatedAt                time.Time `bson:"createdAt" json:"createdAt"`
}
