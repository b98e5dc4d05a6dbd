package query

import (
	"sort"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

// Builder evaluates post filters against in-memory records. Following holds
// the edges of the filter's FollowerID, keyed by author id.
type Builder struct {
	filter    interfaces.PostFilter
	following map[int64]struct{}
}

// NewBuilder creates a new query builder for a filter
func NewBuilder(filter interfaces.PostFilter, following map[int64]struct{}) *Builder {
	return &Builder{filter: filter, following: following}
}

// Matches checks if a post satisfies every set field of the filter
func (b *Builder) Matches(p *entities.Post) bool {
	f := b.filter
	if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
		return false
	}
	if f.GroupID != 0 && (p.GroupID == nil || *p.GroupID != f.GroupID) {
		return false
	}
	if f.FollowerID != 0 {
		if _, ok := b.following[p.AuthorID]; !ok {
			return false
		}
	}
	return true
}

// Filter returns the matching posts, preserving input order.
func (b *Builder) Filter(posts []entities.Post) []entities.Post {
	out := make([]entities.Post, 0, len(posts))
	for i := range posts {
		if b.Matches(&posts[i]) {
			out = append(out, posts[i])
		}
	}
	return out
}

// SortNewestFirst orders posts by creation time descending, ties broken by id descending.
func SortNewestFirst(posts []entities.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// SortOldestFirst orders comments by creation time ascending, ties broken by id.
func SortOldestFirst(comments []entities.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ApplyWindow applies limit and offset to the records
func ApplyWindow[T any](records []T, w interfaces.Window) []T {
	start := w.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(records) {
		return []T{}
	}

	end := len(records)
	if w.Limit > 0 && start+w.Limit < end {
		end = start + w.Limit
	}

	return records[start:end]
}
