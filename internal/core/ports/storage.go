package ports

import (
	"context"

	"github.com/tjfontaine/edgestack/internal/core/domain"
)

// UserStore defines the persistence operations for users.
type UserStore interface {
	// ListUsers returns one page of users ordered by id, with their posts loaded.
	ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error)

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int, error)

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// CreateUser inserts a user and fills in its generated fields.
	CreateUser(ctx context.Context, user *domain.User) error

	// UpdateUser applies a partial update and returns the stored user.
	UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)

	// DeleteUser deletes a user and, through the foreign key, its posts.
	DeleteUser(ctx context.Context, id int64) error
}

// PostStore defines the persistence operations for posts.
type PostStore interface {
	ListPosts(ctx context.Context, offset, limit int) ([]domain.Post, error)
	CountPosts(ctx context.Context) (int, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) error
	UpdatePost(ctx context.Context, id int64, patch domain.PostPatch) (*domain.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

// Store is the database client handle attached to every API request.
type Store interface {
	UserStore
	PostStore

	// Ping runs a trivial probe query against the database.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
