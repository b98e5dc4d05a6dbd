package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

type followKey struct {
	userID   int64
	authorID int64
}

// Database implements the Database interface for in-memory storage.
// Cascades mirror the SQL schema: users cascade to posts, comments and
// follows; posts cascade to comments; groups are detached from posts.
type Database struct {
	mu        sync.RWMutex
	connected bool

	users    map[int64]entities.User
	groups   map[int64]entities.Group
	posts    map[int64]entities.Post
	comments map[int64]entities.Comment
	follows  map[followKey]entities.Follow

	lastID int64
	now    func() time.Time
}

// NewDatabase creates a new in-memory database
func NewDatabase() *Database {
	db := &Database{now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
	db.reset()
	return db
}

func (db *Database) reset() {
	db.users = make(map[int64]entities.User)
	db.groups = make(map[int64]entities.Group)
	db.posts = make(map[int64]entities.Post)
	db.comments = make(map[int64]entities.Comment)
	db.follows = make(map[followKey]entities.Follow)
}

// nextID must be called with the write lock held.
func (db *Database) nextID() int64 {
	db.lastID++
	return db.lastID
}

// Connect establishes a connection to the database
func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	return nil
}

// Disconnect drops every table; the in-memory data does not survive.
func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.reset()
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Migrate is a no-op beyond the connection check; tables always exist.
func (db *Database) Migrate(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if !db.connected {
		return interfaces.ErrDatabaseNotConnected
	}
	return nil
}

func (db *Database) Users() interfaces.UserRepository       { return &userRepository{db: db} }
func (db *Database) Groups() interfaces.GroupRepository     { return &groupRepository{db: db} }
func (db *Database) Posts() interfaces.PostRepository       { return &postRepository{db: db} }
func (db *Database) Comments() interfaces.CommentRepository { return &commentRepository{db: db} }
func (db *Database) Follows() interfaces.FollowRepository   { return &followRepository{db: db} }

// Clear removes all data from all tables (for testing)
func (db *Database) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.reset()
}

// checkConnected must be called with a lock held.
func (db *Database) checkConnected() error {
	if !db.connected {
		return interfaces.ErrDatabaseNotConnected
	}
	return nil
}

// hydratePost must be called with a lock held. It attaches copies of the
// author and group so callers cannot mutate stored records.
func (db *Database) hydratePost(p entities.Post) entities.Post {
	if u, ok := db.users[p.AuthorID]; ok {
		author := u
		p.Author = &author
	}
	if p.GroupID != nil {
		id := *p.GroupID
		p.GroupID = &id
		if g, ok := db.groups[id]; ok {
			group := g
			p.Group = &group
		}
	}
	return p
}
