package sqldb

import (
	"context"
)

type followRepository struct {
	d *Database
}

// Create leans on the (user_id, author_id) unique constraint so concurrent
// requests cannot produce duplicate edges.
func (r *followRepository) Create(ctx context.Context, userID, authorID int64) (bool, error) {
	res, err := r.d.exec(ctx, `
		INSERT INTO follows (user_id, author_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, author_id) DO NOTHING`,
		userID, authorID, r.d.now(),
	)
	if err != nil {
		return false, translate("create follow", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, translate("create follow", err)
	}
	return n > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID int64) (bool, error) {
	res, err := r.d.exec(ctx, `DELETE FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID)
	if err != nil {
		return false, translate("delete follow", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, translate("delete follow", err)
	}
	return n > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID int64) (bool, error) {
	n, err := r.d.count(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID)
	if err != nil {
		return false, translate("exists follow", err)
	}
	return n > 0, nil
}

func (r *followRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	n, err := r.d.count(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = ?`, userID)
	return n, translate("count follows", err)
}
