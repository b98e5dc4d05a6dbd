package sqldb

import (
	"context"
	"database/sql"

	"github.com/yatube/yatube-backend/internal/db/entities"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, is_staff, created_at`

type userRepository struct {
	d *Database
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entities.User, error) {
	var u entities.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsStaff, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *entities.User) error {
	createdAt := r.d.now()
	row, err := r.d.queryRow(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsStaff, createdAt,
	)
	if err != nil {
		return err
	}
	if err := row.Scan(&u.ID); err != nil {
		return translate("create user", err)
	}
	u.CreatedAt = createdAt
	return nil
}

func (r *userRepository) get(ctx context.Context, where string, arg any) (*entities.User, error) {
	row, err := r.d.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, translate("get user", err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.get(ctx, "username = ?", username)
}

func (r *userRepository) List(ctx context.Context) ([]entities.User, error) {
	rows, err := r.d.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate("list users", err)
		}
		users = append(users, *u)
	}
	return users, translate("list users", rows.Err())
}

// Delete relies on ON DELETE CASCADE for posts, comments and follows.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.d.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate("delete user", err)
	}
	return requireAffected(res)
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.d.count(ctx, `SELECT COUNT(*) FROM users`)
	return n, translate("count users", err)
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
