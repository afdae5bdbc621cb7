// Package memory is an in-process implementation of the store interfaces,
// used by the test suite and for running without a database.
package memory

import (
	"sync"

	"github.com/ryabink/chatline/internal/models"
)

type Store struct {
	Rooms    *Rooms
	Messages *Messages
	Users    *Users
}

func New() *Store {
	return &Store{
		Rooms:    &Rooms{rooms: make(map[string]*models.Room)},
		Messages: &Messages{byRoom: make(map[string][]*models.Message)},
		Users:    &Users{users: make(map[string]*models.User)},
	}
}

type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
}

type Messages struct {
	mu     sync.RWMutex
	byRoom map[string][]*models.Message
}

type Users struct {
	mu    sync.RWMutex
	users map[string]*models.User
}
