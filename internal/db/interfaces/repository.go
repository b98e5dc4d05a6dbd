package interfaces

import (
	"context"

	"github.com/yatube/yatube-backend/internal/db/entities"
)

// UserRepository stores accounts. Deleting a user cascades to their posts,
// comments and follow edges.
type UserRepository interface {
	// Create inserts u and fills in ID and CreatedAt.
	Create(ctx context.Context, u *entities.User) error
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	List(ctx context.Context) ([]entities.User, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// GroupRepository stores groups. Deleting a group detaches its posts.
type GroupRepository interface {
	Create(ctx context.Context, g *entities.Group) error
	GetByID(ctx context.Context, id int64) (*entities.Group, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Group, error)
	// List returns every group ordered by title.
	List(ctx context.Context) ([]entities.Group, error)
	Delete(ctx context.Context, id int64) error
}

// PostRepository stores posts. Reads populate Author and Group.
type PostRepository interface {
	// Create inserts p and fills in ID and CreatedAt.
	Create(ctx context.Context, p *entities.Post) error
	GetByID(ctx context.Context, id int64) (*entities.Post, error)
	// Update rewrites Text, GroupID and Image. CreatedAt and AuthorID never change.
	Update(ctx context.Context, p *entities.Post) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, filter PostFilter) (int64, error)
	// List returns posts matching filter, newest first, restricted to window.
	List(ctx context.Context, filter PostFilter, window Window) ([]entities.Post, error)
}

// CommentRepository stores comments. Reads populate Author.
type CommentRepository interface {
	// Create inserts c and fills in ID and CreatedAt. The post must exist.
	Create(ctx context.Context, c *entities.Comment) error
	// ListByPost returns the post's comments, oldest first.
	ListByPost(ctx context.Context, postID int64) ([]entities.Comment, error)
	CountByPost(ctx context.Context, postID int64) (int64, error)
}

// FollowRepository stores follow edges, unique per (user, author).
type FollowRepository interface {
	// Create adds the edge unless it already exists; created reports whether a row was written.
	Create(ctx context.Context, userID, authorID int64) (created bool, err error)
	// Delete removes the edge; deleted is false when it did not exist.
	Delete(ctx context.Context, userID, authorID int64) (deleted bool, err error)
	Exists(ctx context.Context, userID, authorID int64) (bool, error)
	// CountByUser returns how many authors userID follows.
	CountByUser(ctx context.Context, userID int64) (int64, error)
}
