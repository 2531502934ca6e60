package chat

import "errors"

var (
	// ErrNotFound indicates nothing is stored for the owner.
	ErrNotFound = errors.New("chat: not found")
	// ErrOwnerRequired indicates an operation was called without an owner id.
	ErrOwnerRequired = errors.New("chat: owner id required")
)
