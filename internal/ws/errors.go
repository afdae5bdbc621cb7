package ws

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidFrame    = errors.New("invalid frame format")
)
