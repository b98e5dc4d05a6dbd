package entities

import (
	"time"
)

// Post represents a post entity
type Post struct {
	ID        int64     `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	GroupID   *int64    `json:"group_id,omitempty" db:"group_id"`
	Image     string    `json:"image,omitempty" db:"image"`

	// Populated by reads; ignored by writes.
	Author *User  `json:"author,omitempty" db:"-"`
	Group  *Group `json:"group,omitempty" db:"-"`
}

// IsAuthoredBy reports whether u wrote the post. A nil user never matches.
func (p *Post) IsAuthoredBy(u *User) bool {
	return u != nil && p.AuthorID == u.ID
}
