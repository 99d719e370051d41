package repository

import (
	"context"
	"time"

	"github.com/mvtran/authd/internal/domain"
)

// UserRepository is the persistence interface for principals.
type UserRepository interface {
	// Create inserts a new user. Returns an already-exists error when the
	// email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns users, optionally filtered by exact email.
	List(ctx context.Context, email string) ([]domain.User, error)

	// Update modifies an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id string) error
}

// ItemRepository is the persistence interface for items.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository is the persistence interface for refresh-token
// records. Tokens are keyed by the SHA-256 hash of the signed token string.
type RefreshTokenRepository interface {
	// Create persists a new record. Returns an already-exists error when a
	// record with the same hash is present.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a record by token hash, or a not-found error.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke marks the matching record revoked. It is idempotent and a
	// no-op, not an error, when no record matches.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeIfActive marks the record revoked only if it is currently
	// unrevoked, and reports whether this call made the transition. Rotation
	// relies on this compare-and-set: with concurrent refreshes of the same
	// token exactly one caller observes true.
	RevokeIfActive(ctx context.Context, tokenHash string) (bool, error)
}
