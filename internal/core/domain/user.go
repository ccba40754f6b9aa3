package domain

import "time"

// User is an account that owns posts.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      *string   `json:"name" db:"name"`
	Posts     []Post    `json:"posts,omitempty" db:"-"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserPatch carries the fields of a partial user update.
// Nil fields are left unchanged.
type UserPatch struct {
	Email *string
	Name  *string
}

