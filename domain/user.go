package domain

import (
	"context"
	"time"
)

// User represents a user account. Credential verification happens against
// PasswordHash; Mobile is display data carried into the session record.
type User struct {
	ID           int64     `bson:"_id"`
	UserName     string    `bson:"user_name"`
	Mobile       string    `bson:"mobile,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// UserRepository abstracts the user store. The session core only ever reads
// it: once at login for the credential check, and once at refresh to pick up
// current display data.
type UserRepository interface {
	GetUserByName(ctx context.Context, userName string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}
