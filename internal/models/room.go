package models

import (
	"time"
)

// Room is a conversation container: direct (exactly 2 members) or group (3+).
// DeletedFor maps a member id to the moment that member deleted the room;
// presence of an entry hides the room and all older messages from that member.
type Room struct {
	ID         string               `bson:"_id" json:"id"`
	Name       string               `bson:"name" json:"name"`
	IsGroup    bool                 `bson:"is_group" json:"is_group"`
	AvatarURL  string               `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Members    []string             `bson:"members" json:"members"`
	DeletedFor map[string]time.Time `bson:"deleted_for,omitempty" json:"-"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}

func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// DeletedAt returns userID's deletion marker, if one exists.
func (r *Room) DeletedAt(userID string) (time.Time, bool) {
	if r.DeletedFor == nil {
		return time.Time{}, false
	}
	at, ok := r.DeletedFor[userID]
	return at, ok
}

// RoomSummary is a Room enriched for listing: last visible message preview
// and the viewer's unread count.
type RoomSummary struct {
	Room        *Room    `json:"room"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int64    `json:"unread_count"`
}
