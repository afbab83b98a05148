package categoryrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/FanProject516/perpus-app/model"
)

type Repo interface {
	Create(ctx context.Context, c *model.Category) error
	ByID(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context, activeOnly, rootOnly bool) ([]model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id int64) error
	HasChildren(ctx context.Context, id int64) (bool, error)
	HasBooks(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, c *model.Category) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, parent_id, is_active)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		c.Name, c.Description, c.ParentID, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, parent_id, is_active, created_at
		FROM categories
		WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) List(ctx context.Context, activeOnly, rootOnly bool) ([]model.Category, error) {
	q := `
		SELECT id, name, description, parent_id, is_active, created_at
		FROM categories`
	switch {
	case activeOnly && rootOnly:
		q += ` WHERE is_active AND parent_id IS NULL`
	case activeOnly:
		q += ` WHERE is_active`
	case rootOnly:
		q += ` WHERE parent_id IS NULL`
	}
	q += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, parent_id = $4, is_active = $5
		WHERE id = $1`,
		c.ID, c.Name, c.Description, c.ParentID, c.IsActive)
	return err
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}

func (r *repo) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repo) HasBooks(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE category_id = $1)`, id).Scan(&exists)
	return exists, err
}
