package models

import (
	"time"
)

// Message ids are ObjectID hex, monotonic in generation order; together with
// CreatedAt they define a stable total order within a room.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	RoomID    string    `bson:"room_id" json:"room_id"`
	SenderID  string    `bson:"sender_id" json:"sender_id"`
	Content   string    `bson:"content" json:"content"`
	IsRead    bool      `bson:"is_read" json:"is_read"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
