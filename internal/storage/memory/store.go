// Package memory provides an in-memory ports.Store for tests and local runs
// without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tjfontaine/edgestack/internal/core/domain"
	"github.com/tjfontaine/edgestack/internal/core/ports"
	"github.com/tjfontaine/edgestack/internal/storage"
)

// Store is an in-memory implementation of ports.Store
type Store struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	posts    map[int64]*domain.Post
	nextUser int64
	nextPost int64

	// PingErr, when set, is returned by Ping.
	PingErr error
}

var _ ports.Store = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		users: make(map[int64]*domain.User),
		posts: make(map[int64]*domain.Post),
	}
}

func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedKeys(s.users)
	out := []domain.User{}
	for _, id := range page(ids, offset, limit) {
		u := *s.users[id]
		u.Posts = s.postsOf(id)
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.NotFound("get user")
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, 0) {
		return &storage.Error{Code: storage.CodeUniqueViolation, Op: "create user"}
	}

	s.nextUser++
	now := time.Now().UTC()
	user.ID = s.nextUser
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Posts = nil

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.NotFound("update user")
	}
	if patch.Email != nil && s.emailTaken(*patch.Email, id) {
		return nil, &storage.Error{Code: storage.CodeUniqueViolation, Op: "update user"}
	}

	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		name := *patch.Name
		u.Name = &name
	}
	u.UpdatedAt = time.Now().UTC()

	cp := *u
	return &cp, nil
}

// DeleteUser removes the user and cascades to its posts.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.NotFound("delete user")
	}
	delete(s.users, id)
	for pid, p := range s.posts {
		if p.AuthorID == id {
			delete(s.posts, pid)
		}
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, offset, limit int) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Post{}
	for _, id := range page(sortedKeys(s.posts), offset, limit) {
		out = append(out, *s.posts[id])
	}
	return out, nil
}

func (s *Store) CountPosts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts), nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.NotFound("get post")
	}
	cp := *p
	return &cp, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return &storage.Error{Code: storage.CodeForeignKeyViolation, Op: "create post"}
	}

	s.nextPost++
	now := time.Now().UTC()
	post.ID = s.nextPost
	post.CreatedAt = now
	post.UpdatedAt = now

	cp := *post
	s.posts[post.ID] = &cp
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, patch domain.PostPatch) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.NotFound("update post")
	}
	if patch.AuthorID != nil {
		if _, ok := s.users[*patch.AuthorID]; !ok {
			return nil, &storage.Error{Code: storage.CodeForeignKeyViolation, Op: "update post"}
		}
		p.AuthorID = *patch.AuthorID
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		content := *patch.Content
		p.Content = &content
	}
	if patch.Published != nil {
		p.Published = *patch.Published
	}
	p.UpdatedAt = time.Now().UTC()

	cp := *p
	return &cp, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.NotFound("delete post")
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.PingErr
}

func (s *Store) Close() error {
	return nil
}

// emailTaken must be called with the lock held.
func (s *Store) emailTaken(email string, except int64) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

// postsOf must be called with the lock held.
func (s *Store) postsOf(authorID int64) []domain.Post {
	posts := []domain.Post{}
	for _, id := range sortedKeys(s.posts) {
		if p := s.posts[id]; p.AuthorID == authorID {
			posts = append(posts, *p)
		}
	}
	return posts
}

func sortedKeys[T any](m map[int64]T) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func page(ids []int64, offset, limit int) []int64 {
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}
