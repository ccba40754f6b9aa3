package domain

import "time"

// Post is a piece of content written by exactly one User.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   *string   `json:"content" db:"content"`
	Published bool      `json:"published" db:"published"`
	AuthorID  int64     `json:"authorId" db:"author_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PostPatch carries the fields of a partial post update.
type PostPatch struct {
	Title     *string
	Content   *string
	Published *bool
	AuthorID  *int64
}

