package memory

import (
	"context"
	"sort"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

type userRepository struct {
	db *Database
}

// Create inserts a new user; usernames are unique.
func (r *userRepository) Create(ctx context.Context, u *entities.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected(); err != nil {
		return err
	}
	for _, existing := range r.db.users {
		if existing.Username == u.Username {
			return &interfaces.DatabaseError{Op: "create user", Err: interfaces.ErrUniqueConstraint}
		}
	}

	u.ID = r.db.nextID()
	u.CreatedAt = r.db.now()
	r.db.users[u.ID] = *u
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *userRepository) List(ctx context.Context) ([]entities.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := make([]entities.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Delete removes the user together with everything that references them.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return interfaces.ErrNotFound
	}

	for postID, p := range r.db.posts {
		if p.AuthorID == id {
			r.db.deletePostLocked(postID)
		}
	}
	for commentID, c := range r.db.comments {
		if c.AuthorID == id {
			delete(r.db.comments, commentID)
		}
	}
	for key := range r.db.follows {
		if key.userID == id || key.authorID == id {
			delete(r.db.follows, key)
		}
	}
	delete(r.db.users, id)
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return int64(len(r.db.users)), nil
}

type groupRepository struct {
	db *Database
}

// Create inserts a new group; slugs are unique.
func (r *groupRepository) Create(ctx context.Context, g *entities.Group) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected(); err != nil {
		return err
	}
	for _, existing := range r.db.groups {
		if existing.Slug == g.Slug {
			return &interfaces.DatabaseError{Op: "create group", Err: interfaces.ErrUniqueConstraint}
		}
	}

	g.ID = r.db.nextID()
	r.db.groups[g.ID] = *g
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*entities.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	g, ok := r.db.groups[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &g, nil
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*entities.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, g := range r.db.groups {
		if g.Slug == slug {
			found := g
			return &found, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *groupRepository) List(ctx context.Context) ([]entities.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	groups := make([]entities.Group, 0, len(r.db.groups))
	for _, g := range r.db.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title < groups[j].Title
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

// Delete removes the group and detaches its posts (ON DELETE SET NULL).
func (r *groupRepository) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.groups[id]; !ok {
		return interfaces.ErrNotFound
	}
	for postID, p := range r.db.posts {
		if p.GroupID != nil && *p.GroupID == id {
			p.GroupID = nil
			r.db.posts[postID] = p
		}
	}
	delete(r.db.groups, id)
	return nil
}
