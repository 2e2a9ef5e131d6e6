// Package position defines the per-user state the command dispatcher acts on.
//
// Every user owns a single 2D position. Users are created implicitly on first
// use at Default, so there is no explicit login step.
package position

import (
	"context"
	"errors"
	"fmt"
)

// Position is a point on the integer grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Default is where a user starts.
var Default = Position{X: 10, Y: 10}

// AnonymousUser is the identity used when a request names no user.
const AnonymousUser = "anonymous"

// MaxUserNameLength bounds the user names accepted by stores.
const MaxUserNameLength = 64

var (
	// ErrNotFound is returned by Get for a user that has never been seen.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidUser is returned for empty or oversized user names.
	ErrInvalidUser = errors.New("invalid user name")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("position store closed")
)

// UpdateFunc computes the new position of a user from the current one.
// found is false when the user did not exist yet; pos is then Default.
type UpdateFunc func(pos Position, found bool) (Position, error)

// Store persists user positions.
//
// Implementations must be safe for concurrent use: workers of the server
// call into the store in parallel. Update is atomic per user.
type Store interface {
	// Get returns the stored position of user, or ErrNotFound.
	Get(ctx context.Context, user string) (Position, error)

	// Update applies fn to the current position of user and stores the
	// result. The user is created when missing.
	Update(ctx context.Context, user string, fn UpdateFunc) (Position, error)

	// Delete forgets user. Deleting a missing user is not an error.
	Delete(ctx context.Context, user string) error

	// Count returns the number of known users.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// ValidateUser checks a user name before it is used as a key.
func ValidateUser(user string) error {
	if user == "" || len(user) > MaxUserNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return nil
}

// GetOrDefault returns the stored position of user, or Default if the user
// has never been seen. It does not create the user.
func GetOrDefault(ctx context.Context, s Store, user string) (Position, error) {
	pos, err := s.Get(ctx, user)
	if errors.Is(err, ErrNotFound) {
		return Default, nil
	}
	return pos, err
}
