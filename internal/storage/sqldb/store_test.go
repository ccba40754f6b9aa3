package sqldb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tjfontaine/edgestack/internal/core/domain"
	"github.com/tjfontaine/edgestack/internal/storage"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()
	store, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestSQLDBStore_CreateAndGetUser(t *testing.T) {
	store := newTestStore(t, "users1")
	ctx := context.Background()

	user := &domain.User{Email: "ada@example.com", Name: strPtr("Ada")}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected generated id")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("Email = %v, want ada@example.com", got.Email)
	}
	if got.Name == nil || *got.Name != "Ada" {
		t.Errorf("Name = %v, want Ada", got.Name)
	}
}

func TestSQLDBStore_DuplicateEmail(t *testing.T) {
	store := newTestStore(t, "users2")
	ctx := context.Background()

	if err := store.CreateUser(ctx, &domain.User{Email: "dup@example.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	err := store.CreateUser(ctx, &domain.User{Email: "dup@example.com"})
	if code := storage.CodeOf(err); code != storage.CodeUniqueViolation {
		t.Fatalf("CodeOf(err) = %q, want %q (err = %v)", code, storage.CodeUniqueViolation, err)
	}
}

func TestSQLDBStore_NotFound(t *testing.T) {
	store := newTestStore(t, "users3")
	ctx := context.Background()

	if _, err := store.GetUser(ctx, 999); !storage.IsNotFound(err) {
		t.Errorf("GetUser() error = %v, want not found", err)
	}
	if _, err := store.UpdateUser(ctx, 999, domain.UserPatch{Name: strPtr("x")}); !storage.IsNotFound(err) {
		t.Errorf("UpdateUser() error = %v, want not found", err)
	}
	if err := store.DeleteUser(ctx, 999); !storage.IsNotFound(err) {
		t.Errorf("DeleteUser() error = %v, want not found", err)
	}
	if _, err := store.GetPost(ctx, 999); !storage.IsNotFound(err) {
		t.Errorf("GetPost() error = %v, want not found", err)
	}
	if err := store.DeletePost(ctx, 999); !storage.IsNotFound(err) {
		t.Errorf("DeletePost() error = %v, want not found", err)
	}
}

func TestSQLDBStore_UpdateUser(t *testing.T) {
	store := newTestStore(t, "users4")
	ctx := context.Background()

	user := &domain.User{Email: "old@example.com", Name: strPtr("Old")}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	updated, err := store.UpdateUser(ctx, user.ID, domain.UserPatch{Name: strPtr("New")})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Email != "old@example.com" {
		t.Errorf("Email = %v, want unchanged", updated.Email)
	}
	if updated.Name == nil || *updated.Name != "New" {
		t.Errorf("Name = %v, want New", updated.Name)
	}
}

func TestSQLDBStore_PostsAndCascade(t *testing.T) {
	store := newTestStore(t, "posts1")
	ctx := context.Background()

	author := &domain.User{Email: "author@example.com"}
	if err := store.CreateUser(ctx, author); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	post := &domain.Post{Title: "Hello", Content: strPtr("World"), AuthorID: author.ID}
	if err := store.CreatePost(ctx, post); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if post.ID == 0 || post.Published {
		t.Errorf("unexpected post after create: %+v", post)
	}

	published := true
	updated, err := store.UpdatePost(ctx, post.ID, domain.PostPatch{Published: &published})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if !updated.Published || updated.Title != "Hello" {
		t.Errorf("unexpected post after update: %+v", updated)
	}

	users, err := store.ListUsers(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 || len(users[0].Posts) != 1 {
		t.Fatalf("ListUsers() = %+v, want one user with one post", users)
	}

	if err := store.DeleteUser(ctx, author.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	n, err := store.CountPosts(ctx)
	if err != nil {
		t.Fatalf("CountPosts() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountPosts() = %d, want 0 after cascade", n)
	}
}

func TestSQLDBStore_PostMissingAuthor(t *testing.T) {
	store := newTestStore(t, "posts2")

	err := store.CreatePost(context.Background(), &domain.Post{Title: "Orphan", AuthorID: 42})
	if code := storage.CodeOf(err); code != storage.CodeForeignKeyViolation {
		t.Fatalf("CodeOf(err) = %q, want %q (err = %v)", code, storage.CodeForeignKeyViolation, err)
	}
}

func TestSQLDBStore_ListPagination(t *testing.T) {
	store := newTestStore(t, "pages1")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.CreateUser(ctx, &domain.User{Email: fmt.Sprintf("u%d@example.com", i)}); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	total, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers() error = %v", err)
	}
	if total != 5 {
		t.Errorf("CountUsers() = %d, want 5", total)
	}

	page, err := store.ListUsers(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	if page[0].Email != "u2@example.com" || page[1].Email != "u3@example.com" {
		t.Errorf("page = %v, %v; want u2, u3", page[0].Email, page[1].Email)
	}
	if page[0].Posts == nil {
		t.Error("Posts should be an empty slice, not nil")
	}

	empty, err := store.ListUsers(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len(empty) = %d, want 0", len(empty))
	}
}

func TestSQLDBStore_Ping(t *testing.T) {
	store := newTestStore(t, "ping1")
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSQLDBStore_PostgresErrorTranslation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	store, err := NewFromDB(db, "pgx")
	if err != nil {
		t.Fatalf("NewFromDB() error = %v", err)
	}

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(`INSERT INTO posts`).WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("connection refused"))

	ctx := context.Background()
	if code := storage.CodeOf(store.CreateUser(ctx, &domain.User{Email: "a@b.c"})); code != storage.CodeUniqueViolation {
		t.Errorf("CreateUser code = %q, want %q", code, storage.CodeUniqueViolation)
	}
	if code := storage.CodeOf(store.CreatePost(ctx, &domain.Post{Title: "t", AuthorID: 1})); code != storage.CodeForeignKeyViolation {
		t.Errorf("CreatePost code = %q, want %q", code, storage.CodeForeignKeyViolation)
	}
	if err := store.Ping(ctx); err == nil || storage.CodeOf(err) != "" {
		t.Errorf("Ping() error = %v, want plain error", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSQLDBStore_PostgresRebind(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	store, err := NewFromDB(db, "pgx")
	if err != nil {
		t.Fatalf("NewFromDB() error = %v", err)
	}

	mock.ExpectExec(`DELETE FROM posts WHERE id = $1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeletePost(context.Background(), 7); !storage.IsNotFound(err) {
		t.Errorf("DeletePost() error = %v, want not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
