package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/yatube/yatube-backend/internal/db/entities"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

const postSelect = `
	SELECT p.id, p.text, p.created_at, p.author_id, p.group_id, p.image,
	       u.username, u.email, u.first_name, u.last_name, u.is_staff, u.created_at,
	       g.title, g.slug, g.description
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN blog_groups g ON g.id = p.group_id`

type postRepository struct {
	d *Database
}

func scanPost(row rowScanner) (*entities.Post, error) {
	var (
		p       entities.Post
		u       entities.User
		groupID sql.NullInt64
		title   sql.NullString
		slug    sql.NullString
		desc    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Text, &p.CreatedAt, &p.AuthorID, &groupID, &p.Image,
		&u.Username, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff, &u.CreatedAt,
		&title, &slug, &desc); err != nil {
		return nil, err
	}

	u.ID = p.AuthorID
	p.Author = &u
	if groupID.Valid {
		id := groupID.Int64
		p.GroupID = &id
		p.Group = &entities.Group{ID: id, Title: title.String, Slug: slug.String, Description: desc.String}
	}
	return &p, nil
}

func postWhere(f interfaces.PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.AuthorID != 0 {
		conds = append(conds, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.GroupID != 0 {
		conds = append(conds, "p.group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.FollowerID != 0 {
		conds = append(conds, "p.author_id IN (SELECT author_id FROM follows WHERE user_id = ?)")
		args = append(args, f.FollowerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *postRepository) Create(ctx context.Context, p *entities.Post) error {
	createdAt := r.d.now()
	row, err := r.d.queryRow(ctx, `
		INSERT INTO posts (text, created_at, author_id, group_id, image)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		p.Text, createdAt, p.AuthorID, nullableID(p.GroupID), p.Image,
	)
	if err != nil {
		return err
	}
	if err := row.Scan(&p.ID); err != nil {
		return translate("create post", err)
	}
	p.CreatedAt = createdAt
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*entities.Post, error) {
	row, err := r.d.queryRow(ctx, postSelect+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPost(row)
	if err != nil {
		return nil, translate("get post", err)
	}
	return p, nil
}

func (r *postRepository) Update(ctx context.Context, p *entities.Post) error {
	res, err := r.d.exec(ctx, `UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?`,
		p.Text, nullableID(p.GroupID), p.Image, p.ID)
	if err != nil {
		return translate("update post", err)
	}
	return requireAffected(res)
}

// Delete relies on ON DELETE CASCADE for comments.
func (r *postRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.d.exec(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return translate("delete post", err)
	}
	return requireAffected(res)
}

func (r *postRepository) Count(ctx context.Context, filter interfaces.PostFilter) (int64, error) {
	where, args := postWhere(filter)
	n, err := r.d.count(ctx, `SELECT COUNT(*) FROM posts p`+where, args...)
	return n, translate("count posts", err)
}

func (r *postRepository) List(ctx context.Context, filter interfaces.PostFilter, window interfaces.Window) ([]entities.Post, error) {
	where, args := postWhere(filter)
	q := postSelect + where + ` ORDER BY p.created_at DESC, p.id DESC`
	if window.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, window.Limit, max(window.Offset, 0))
	}

	rows, err := r.d.query(ctx, q, args...)
	if err != nil {
		return nil, translate("list posts", err)
	}
	defer rows.Close()

	posts := make([]entities.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, translate("list posts", err)
		}
		posts = append(posts, *p)
	}
	return posts, translate("list posts", rows.Err())
}

type commentRepository struct {
	d *Database
}

func (r *commentRepository) Create(ctx context.Context, c *entities.Comment) error {
	createdAt := r.d.now()
	row, err := r.d.queryRow(ctx, `
		INSERT INTO comments (post_id, author_id, text, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		c.PostID, c.AuthorID, c.Text, createdAt,
	)
	if err != nil {
		return err
	}
	if err := row.Scan(&c.ID); err != nil {
		return translate("create comment", err)
	}
	c.CreatedAt = createdAt
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID int64) ([]entities.Comment, error) {
	rows, err := r.d.query(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.text, c.created_at,
		       u.username, u.first_name, u.last_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at, c.id`, postID)
	if err != nil {
		return nil, translate("list comments", err)
	}
	defer rows.Close()

	comments := make([]entities.Comment, 0)
	for rows.Next() {
		var (
			c entities.Comment
			u entities.User
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt,
			&u.Username, &u.FirstName, &u.LastName); err != nil {
			return nil, translate("list comments", err)
		}
		u.ID = c.AuthorID
		c.Author = &u
		comments = append(comments, c)
	}
	return comments, translate("list comments", rows.Err())
}

func (r *commentRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	n, err := r.d.count(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID)
	return n, translate("count comments", err)
}
