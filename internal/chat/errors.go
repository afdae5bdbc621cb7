package chat

import (
	"errors"

	"github.com/ryabink/chatline/internal/store"
)

// Sentinel errors returned by the chat core. Callers branch with errors.Is;
// wrapped variants carry the specific reason text.
var (
	// ErrValidation marks malformed or empty input.
	ErrValidation = errors.New("validation failed")
	// ErrPermission marks a non-member acting on a room. It is surfaced as a
	// plain access-denied so callers cannot tell a hidden room from a
	// nonexistent one.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound marks an absent room, message or user.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated marks a missing or invalid credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStorageUnavailable marks a store call that failed even after the
	// retry policy. Store errors pass through the core unwrapped, so this is
	// the storage sentinel itself.
	ErrStorageUnavailable = store.ErrUnavailable
)
