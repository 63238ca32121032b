// Package apperr holds the sentinel errors shared across decat layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrDisconnected is returned when an ancestor walk runs out of parents
	// before reaching a registered root.
	ErrDisconnected = fmt.Errorf("disconnected from tree: %w", ErrNotFound)

	// ErrNegativeCount is returned when a count adjustment would drive a
	// category (or one of its ancestors) below zero.
	ErrNegativeCount = errors.New("count would become negative")
	ErrInvalidCount  = errors.New("invalid count")
)
