package memory

import (
	"context"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/db/query"
)

type postRepository struct {
	db *Database
}

// validatePostRefs must be called with a lock held.
func (db *Database) validatePostRefs(p *entities.Post) error {
	if _, ok := db.users[p.AuthorID]; !ok {
		return interfaces.ErrForeignKeyConstraint
	}
	if p.GroupID != nil {
		if _, ok := db.groups[*p.GroupID]; !ok {
			return interfaces.ErrForeignKeyConstraint
		}
	}
	return nil
}

// deletePostLocked removes a post and its comments. Write lock must be held.
func (db *Database) deletePostLocked(id int64) {
	for commentID, c := range db.comments {
		if c.PostID == id {
			delete(db.comments, commentID)
		}
	}
	delete(db.posts, id)
}

func (r *postRepository) Create(ctx context.Context, p *entities.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected(); err != nil {
		return err
	}
	if err := r.db.validatePostRefs(p); err != nil {
		return &interfaces.DatabaseError{Op: "create post", Err: err}
	}

	p.ID = r.db.nextID()
	p.CreatedAt = r.db.now()
	stored := *p
	stored.Author, stored.Group = nil, nil
	if p.GroupID != nil {
		id := *p.GroupID
		stored.GroupID = &id
	}
	r.db.posts[p.ID] = stored
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*entities.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.posts[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	hydrated := r.db.hydratePost(p)
	return &hydrated, nil
}

func (r *postRepository) Update(ctx context.Context, p *entities.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.posts[p.ID]
	if !ok {
		return interfaces.ErrNotFound
	}
	check := existing
	check.GroupID = p.GroupID
	if err := r.db.validatePostRefs(&check); err != nil {
		return &interfaces.DatabaseError{Op: "update post", Err: err}
	}

	existing.Text = p.Text
	existing.Image = p.Image
	existing.GroupID = nil
	if p.GroupID != nil {
		id := *p.GroupID
		existing.GroupID = &id
	}
	r.db.posts[p.ID] = existing
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.posts[id]; !ok {
		return interfaces.ErrNotFound
	}
	r.db.deletePostLocked(id)
	return nil
}

// matching must be called with a lock held.
func (r *postRepository) matching(filter interfaces.PostFilter) []entities.Post {
	var following map[int64]struct{}
	if filter.FollowerID != 0 {
		following = make(map[int64]struct{})
		for key := range r.db.follows {
			if key.userID == filter.FollowerID {
				following[key.authorID] = struct{}{}
			}
		}
	}

	all := make([]entities.Post, 0, len(r.db.posts))
	for _, p := range r.db.posts {
		all = append(all, p)
	}
	return query.NewBuilder(filter, following).Filter(all)
}

func (r *postRepository) Count(ctx context.Context, filter interfaces.PostFilter) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return int64(len(r.matching(filter))), nil
}

func (r *postRepository) List(ctx context.Context, filter interfaces.PostFilter, window interfaces.Window) ([]entities.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	posts := r.matching(filter)
	query.SortNewestFirst(posts)
	posts = query.ApplyWindow(posts, window)

	out := make([]entities.Post, len(posts))
	for i, p := range posts {
		out[i] = r.db.hydratePost(p)
	}
	return out, nil
}

type commentRepository struct {
	db *Database
}

func (r *commentRepository) Create(ctx context.Context, c *entities.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected(); err != nil {
		return err
	}
	if _, ok := r.db.posts[c.PostID]; !ok {
		return &interfaces.DatabaseError{Op: "create comment", Err: interfaces.ErrForeignKeyConstraint}
	}
	if _, ok := r.db.users[c.AuthorID]; !ok {
		return &interfaces.DatabaseError{Op: "create comment", Err: interfaces.ErrForeignKeyConstraint}
	}

	c.ID = r.db.nextID()
	c.CreatedAt = r.db.now()
	stored := *c
	stored.Author = nil
	r.db.comments[c.ID] = stored
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID int64) ([]entities.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	comments := make([]entities.Comment, 0)
	for _, c := range r.db.comments {
		if c.PostID != postID {
			continue
		}
		if u, ok := r.db.users[c.AuthorID]; ok {
			author := u
			c.Author = &author
		}
		comments = append(comments, c)
	}
	query.SortOldestFirst(comments)
	return comments, nil
}

func (r *commentRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var n int64
	for _, c := range r.db.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

type followRepository struct {
	db *Database
}

func (r *followRepository) Create(ctx context.Context, userID, authorID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkConnected(); err != nil {
		return false, err
	}
	_, userOK := r.db.users[userID]
	_, authorOK := r.db.users[authorID]
	if !userOK || !authorOK {
		return false, &interfaces.DatabaseError{Op: "create follow", Err: interfaces.ErrForeignKeyConstraint}
	}

	key := followKey{userID: userID, authorID: authorID}
	if _, exists := r.db.follows[key]; exists {
		return false, nil
	}
	r.db.follows[key] = entities.Follow{
		ID:        r.db.nextID(),
		UserID:    userID,
		AuthorID:  authorID,
		CreatedAt: r.db.now(),
	}
	return true, nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := followKey{userID: userID, authorID: authorID}
	if _, exists := r.db.follows[key]; !exists {
		return false, nil
	}
	delete(r.db.follows, key)
	return true, nil
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID int64) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	_, exists := r.db.follows[followKey{userID: userID, authorID: authorID}]
	return exists, nil
}

func (r *followRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var n int64
	for key := range r.db.follows {
		if key.userID == userID {
			n++
		}
	}
	return n, nil
}
