package ecs

import "errors"

var (
	// ErrInvalidLifecycleTransition is returned for any operation on a
	// destroyed or unknown entity, and for duplicate id creation.
	ErrInvalidLifecycleTransition = errors.New("invalid lifecycle transition")
	ErrDuplicateEntityID          = errors.New("duplicate entity id")
	ErrDuplicateComponent         = errors.New("duplicate component kind")
)
