package models

import (
	"time"
)

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	AvatarURL    string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastSeen     time.Time `bson:"last_seen" json:"last_seen"`
}
