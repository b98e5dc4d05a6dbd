package interfaces

import (
	"errors"
)

// PostFilter narrows a post listing. Zero fields are ignored; set fields are ANDed.
type PostFilter struct {
	AuthorID int64 // posts written by this user
	GroupID  int64 // posts in this group
	// FollowerID selects posts written by authors this user follows.
	FollowerID int64
}

// Window is an offset/limit slice of an ordered result. Limit <= 0 means no limit.
type Window struct {
	Offset int
	Limit  int
}

// Common database errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrUniqueConstraint     = errors.New("unique constraint violation")
	ErrForeignKeyConstraint = errors.New("foreign key constraint violation")
	ErrInvalidQuery         = errors.New("invalid query")
	ErrDatabaseNotConnected = errors.New("database not connected")
)

// DatabaseError wraps database-specific errors
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
