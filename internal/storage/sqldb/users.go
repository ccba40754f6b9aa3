package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tjfontaine/edgestack/internal/core/domain"
)

const userColumns = `id, email, name, created_at, updated_at`
const postColumns = `id, title, content, published, author_id, created_at, updated_at`

func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error) {
	query := s.dialect.Rebind(`SELECT ` + userColumns + ` FROM users ORDER BY id ASC LIMIT ? OFFSET ?`)

	users := []domain.User{}
	if err := s.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, s.wrap("list users", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	if err := s.attachPosts(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// attachPosts loads the posts of one page of users with a single IN query.
func (s *Store) attachPosts(ctx context.Context, users []domain.User) error {
	ids := make([]int64, len(users))
	byID := make(map[int64]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
		byID[u.ID] = i
		users[i].Posts = []domain.Post{}
	}

	query, args, err := sqlx.In(`SELECT `+postColumns+` FROM posts WHERE author_id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return fmt.Errorf("build posts query: %w", err)
	}

	var posts []domain.Post
	if err := s.db.SelectContext(ctx, &posts, s.dialect.Rebind(query), args...); err != nil {
		return s.wrap("list user posts", err)
	}
	for _, p := range posts {
		if i, ok := byID[p.AuthorID]; ok {
			users[i].Posts = append(users[i].Posts, p)
		}
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "count users", "users")
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := s.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	var u domain.User
	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, s.wrap("get user", err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	query := s.dialect.Rebind(`INSERT INTO users (email, name, created_at, updated_at)
	          VALUES (?, ?, ?, ?) RETURNING ` + userColumns)

	if err := s.db.GetContext(ctx, user, query, user.Email, user.Name, now, now); err != nil {
		return s.wrap("create user", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	var sets []string
	var args []any
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := s.dialect.Rebind(`UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? RETURNING ` + userColumns)

	var u domain.User
	if err := s.db.GetContext(ctx, &u, query, args...); err != nil {
		return nil, s.wrap("update user", err)
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "delete user", "users", id)
}
