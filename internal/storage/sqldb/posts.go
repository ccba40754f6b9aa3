package sqldb

import (
	"context"
	"strings"
	"time"

	"github.com/tjfontaine/edgestack/internal/core/domain"
)

func (s *Store) ListPosts(ctx context.Context, offset, limit int) ([]domain.Post, error) {
	query := s.dialect.Rebind(`SELECT ` + postColumns + ` FROM posts ORDER BY id ASC LIMIT ? OFFSET ?`)

	posts := []domain.Post{}
	if err := s.db.SelectContext(ctx, &posts, query, limit, offset); err != nil {
		return nil, s.wrap("list posts", err)
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context) (int, error) {
	return s.count(ctx, "count posts", "posts")
}

func (s *Store) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	query := s.dialect.Rebind(`SELECT ` + postColumns + ` FROM posts WHERE id = ?`)

	var p domain.Post
	if err := s.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, s.wrap("get post", err)
	}
	return &p, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()
	query := s.dialect.Rebind(`INSERT INTO posts (title, content, published, author_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?) RETURNING ` + postColumns)

	err := s.db.GetContext(ctx, post, query,
		post.Title, post.Content, post.Published, post.AuthorID, now, now)
	if err != nil {
		return s.wrap("create post", err)
	}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, patch domain.PostPatch) (*domain.Post, error) {
	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Published != nil {
		sets = append(sets, "published = ?")
		args = append(args, *patch.Published)
	}
	if patch.AuthorID != nil {
		sets = append(sets, "author_id = ?")
		args = append(args, *patch.AuthorID)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := s.dialect.Rebind(`UPDATE posts SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? RETURNING ` + postColumns)

	var p domain.Post
	if err := s.db.GetContext(ctx, &p, query, args...); err != nil {
		return nil, s.wrap("update post", err)
	}
	return &p, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "delete post", "posts", id)
}
