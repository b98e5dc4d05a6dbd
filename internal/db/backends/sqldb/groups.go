package sqldb

import (
	"context"

	"github.com/yatube/yatube-backend/internal/db/entities"
)

type groupRepository struct {
	d *Database
}

func scanGroup(row rowScanner) (*entities.Group, error) {
	var g entities.Group
	if err := row.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepository) Create(ctx context.Context, g *entities.Group) error {
	row, err := r.d.queryRow(ctx, `
		INSERT INTO blog_groups (title, slug, description)
		VALUES (?, ?, ?)
		RETURNING id`,
		g.Title, g.Slug, g.Description,
	)
	if err != nil {
		return err
	}
	return translate("create group", row.Scan(&g.ID))
}

func (r *groupRepository) get(ctx context.Context, where string, arg any) (*entities.Group, error) {
	row, err := r.d.queryRow(ctx, `SELECT id, title, slug, description FROM blog_groups WHERE `+where, arg)
	if err != nil {
		return nil, err
	}
	g, err := scanGroup(row)
	if err != nil {
		return nil, translate("get group", err)
	}
	return g, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*entities.Group, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*entities.Group, error) {
	return r.get(ctx, "slug = ?", slug)
}

func (r *groupRepository) List(ctx context.Context) ([]entities.Group, error) {
	rows, err := r.d.query(ctx, `SELECT id, title, slug, description FROM blog_groups ORDER BY title, id`)
	if err != nil {
		return nil, translate("list groups", err)
	}
	defer rows.Close()

	groups := make([]entities.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, translate("list groups", err)
		}
		groups = append(groups, *g)
	}
	return groups, translate("list groups", rows.Err())
}

// Delete relies on ON DELETE SET NULL to detach posts.
func (r *groupRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.d.exec(ctx, `DELETE FROM blog_groups WHERE id = ?`, id)
	if err != nil {
		return translate("delete group", err)
	}
	return requireAffected(res)
}
