package bookrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/FanProject516/perpus-app/model"
	"github.com/FanProject516/perpus-app/util/database"
)

type ListFilter struct {
	Search        string
	CategoryID    int64
	AvailableOnly bool
	Limit         int
	Offset        int
}

type Stats struct {
	TotalBooks      int64   `json:"total_books"`
	TotalCopies     int64   `json:"total_copies"`
	AvailableCopies int64   `json:"available_copies"`
	Unavailable     int64   `json:"unavailable_books"`
	ActiveLoans     int64   `json:"active_loans"`
}

type Repo interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, b *model.Book) error
	ByID(ctx context.Context, id int64) (*model.Book, error)
	ByIDForUpdate(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f ListFilter) ([]model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	HasActiveLoans(ctx context.Context, bookID int64) (bool, error)
	Statistics(ctx context.Context) (*Stats, error)

	ListCopies(ctx context.Context, bookID int64) ([]model.Copy, error)
	AddCopies(ctx context.Context, bookID int64, copies []model.Copy) error

	// Catalog engine; see catalog.go.
	FindAvailableCopyForUpdate(ctx context.Context, bookID int64) (*model.Copy, error)
	MarkCopyBorrowed(ctx context.Context, copyID int64) error
	InsertCopy(ctx context.Context, c *model.Copy) error
	ReleaseCopy(ctx context.Context, copyID int64) error
	DecreaseAvailable(ctx context.Context, bookID int64) (floored bool, err error)
	IncreaseAvailable(ctx context.Context, bookID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, r.db, fn)
}

const bookCols = `id, title, author, isbn, publisher, year, category_id, summary,
	total_copies, available_copies, condition, location, is_available, created_at`

func scanBook(row interface{ Scan(dest ...any) error }, b *model.Book) error {
	return row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Publisher, &b.Year, &b.CategoryID,
		&b.Summary, &b.TotalCopies, &b.AvailableCopies, &b.Condition, &b.Location,
		&b.IsAvailable, &b.CreatedAt,
	)
}

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	q := database.From(ctx, r.db)
	return q.QueryRowContext(ctx, `
		INSERT INTO books (title, author, isbn, publisher, year, category_id, summary,
			total_copies, available_copies, condition, location, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at`,
		b.Title, b.Author, b.ISBN, b.Publisher, b.Year, b.CategoryID, b.Summary,
		b.TotalCopies, b.AvailableCopies, b.Condition, b.Location, b.IsAvailable,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Book, error) {
	q := database.From(ctx, r.db)
	b := &model.Book{}
	err := scanBook(q.QueryRowContext(ctx, `SELECT `+bookCols+` FROM books WHERE id = $1`, id), b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) ByIDForUpdate(ctx context.Context, id int64) (*model.Book, error) {
	q := database.From(ctx, r.db)
	b := &model.Book{}
	err := scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookCols+` FROM books WHERE id = $1 FOR UPDATE`, id), b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]model.Book, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := fmt.Sprintf("$%d", len(args))
		where = append(where, `(title ILIKE `+n+` OR author ILIKE `+n+` OR isbn ILIKE `+n+`)`)
	}
	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.AvailableOnly {
		where = append(where, "is_available AND available_copies > 0")
	}

	q := `SELECT ` + bookCols + ` FROM books`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY title, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Update(ctx context.Context, b *model.Book) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, publisher = $5, year = $6,
			category_id = $7, summary = $8, total_copies = $9, available_copies = $10,
			condition = $11, location = $12, is_available = $13
		WHERE id = $1`,
		b.ID, b.Title, b.Author, b.ISBN, b.Publisher, b.Year, b.CategoryID, b.Summary,
		b.TotalCopies, b.AvailableCopies, b.Condition, b.Location, b.IsAvailable,
	)
	return err
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	return err
}

func (r *repo) HasActiveLoans(ctx context.Context, bookID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE book_id = $1 AND status IN ('borrowed','overdue')
		)`, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) Statistics(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_copies),0),
			COALESCE(SUM(available_copies),0),
			COUNT(*) FILTER (WHERE NOT is_available OR available_copies = 0),
			(SELECT COUNT(*) FROM loans WHERE status IN ('borrowed','overdue'))
		FROM books`,
	).Scan(&s.TotalBooks, &s.TotalCopies, &s.AvailableCopies, &s.Unavailable, &s.ActiveLoans)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repo) ListCopies(ctx context.Context, bookID int64) ([]model.Copy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, barcode, condition, location, is_available, notes, created_at
		FROM copies
		WHERE book_id = $1
		ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Copy
	for rows.Next() {
		var c model.Copy
		if err := rows.Scan(&c.ID, &c.BookID, &c.Barcode, &c.Condition, &c.Location,
			&c.IsAvailable, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) AddCopies(ctx context.Context, bookID int64, copies []model.Copy) error {
	q := database.From(ctx, r.db)
	for i := range copies {
		c := &copies[i]
		if err := q.QueryRowContext(ctx, `
			INSERT INTO copies (book_id, barcode, condition, location, is_available, notes)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id, created_at`,
			bookID, c.Barcode, c.Condition, c.Location, c.IsAvailable, c.Notes,
		).Scan(&c.ID, &c.CreatedAt); err != nil {
			return err
		}
	}
	_, err := q.ExecContext(ctx, `
		UPDATE books
		SET total_copies = total_copies + $2,
			available_copies = available_copies + $2
		WHERE id = $1`,
		bookID, len(copies))
	return err
}
