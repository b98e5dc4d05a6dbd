package entities

import "time"

// Follow is a directed edge: UserID reads AuthorID's posts in their feed.
type Follow struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
