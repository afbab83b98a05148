package loanrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FanProject516/perpus-app/model"
	"github.com/FanProject516/perpus-app/util/database"
)

// DetailRow is a loan joined with its user, book and copy for listings.
type DetailRow struct {
	model.Loan
	UserName    string  `json:"user_name"`
	BookTitle   string  `json:"book_title"`
	BookAuthor  string  `json:"book_author"`
	CopyBarcode *string `json:"copy_barcode,omitempty"`
}

type ListFilter struct {
	UserID      int64
	Status      model.LoanStatus
	ActiveOnly  bool
	OverdueOnly bool
	Now         time.Time // reference instant for OverdueOnly
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type Stats struct {
	TotalLoans    int64   `json:"total_loans"`
	ActiveLoans   int64   `json:"active_loans"`
	OverdueLoans  int64   `json:"overdue_loans"`
	ReturnedLoans int64   `json:"returned_loans"`
	TotalFines    float64 `json:"total_fines"`
}

type Repo interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Insert(ctx context.Context, l *model.Loan) error
	ByID(ctx context.Context, id int64) (*model.Loan, error)
	ByIDForUpdate(ctx context.Context, id int64) (*model.Loan, error)
	CountActiveByUser(ctx context.Context, userID int64) (int, error)
	HasActiveForBook(ctx context.Context, userID, bookID int64) (bool, error)

	MarkReturned(ctx context.Context, id int64, returnedAt time.Time, fine float64) error
	MarkOverdue(ctx context.Context, id int64, fine float64) error
	SetDueDate(ctx context.Context, id int64, due time.Time) error

	ListStaleBorrowed(ctx context.Context, cutoff time.Time) ([]int64, error)
	List(ctx context.Context, f ListFilter) ([]DetailRow, error)
	Statistics(ctx context.Context) (*Stats, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, r.db, fn)
}

const loanCols = `id, user_id, book_id, copy_id, status, borrowed_at, due_date,
	returned_at, fine_amount, notes, created_at`

func scanLoan(row interface{ Scan(dest ...any) error }, l *model.Loan) error {
	return row.Scan(
		&l.ID, &l.UserID, &l.BookID, &l.CopyID, &l.Status, &l.BorrowedAt,
		&l.DueDate, &l.ReturnedAt, &l.FineAmount, &l.Notes, &l.CreatedAt,
	)
}

func (r *repo) Insert(ctx context.Context, l *model.Loan) error {
	q := database.From(ctx, r.db)
	return q.QueryRowContext(ctx, `
		INSERT INTO loans (user_id, book_id, copy_id, status, borrowed_at, due_date, fine_amount, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at`,
		l.UserID, l.BookID, l.CopyID, l.Status, l.BorrowedAt, l.DueDate, l.FineAmount, l.Notes,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Loan, error) {
	q := database.From(ctx, r.db)
	l := &model.Loan{}
	err := scanLoan(q.QueryRowContext(ctx, `SELECT `+loanCols+` FROM loans WHERE id = $1`, id), l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *repo) ByIDForUpdate(ctx context.Context, id int64) (*model.Loan, error) {
	q := database.From(ctx, r.db)
	l := &model.Loan{}
	err := scanLoan(q.QueryRowContext(ctx,
		`SELECT `+loanCols+` FROM loans WHERE id = $1 FOR UPDATE`, id), l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *repo) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	q := database.From(ctx, r.db)
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM loans
		WHERE user_id = $1 AND status IN ('borrowed','overdue')`, userID).Scan(&n)
	return n, err
}

func (r *repo) HasActiveForBook(ctx context.Context, userID, bookID int64) (bool, error) {
	q := database.From(ctx, r.db)
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE user_id = $1 AND book_id = $2 AND status IN ('borrowed','overdue')
		)`, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) MarkReturned(ctx context.Context, id int64, returnedAt time.Time, fine float64) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE loans
		SET status = 'returned',
			returned_at = $2,
			fine_amount = $3
		WHERE id = $1`, id, returnedAt, fine)
	return err
}

func (r *repo) MarkOverdue(ctx context.Context, id int64, fine float64) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE loans
		SET status = 'overdue',
			fine_amount = $2
		WHERE id = $1`, id, fine)
	return err
}

func (r *repo) SetDueDate(ctx context.Context, id int64, due time.Time) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE loans
		SET due_date = $2
		WHERE id = $1`, id, due)
	return err
}

// ListStaleBorrowed reads committed state only; each candidate is
// re-checked under lock when the sweep transitions it.
func (r *repo) ListStaleBorrowed(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM loans
		WHERE status = 'borrowed' AND due_date < $1
		ORDER BY id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]DetailRow, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID > 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("l.user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, "l.status IN ('borrowed','overdue')")
	}
	if f.OverdueOnly {
		args = append(args, f.Now)
		where = append(where, fmt.Sprintf(
			"(l.status = 'overdue' OR (l.status = 'borrowed' AND l.due_date < $%d))", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("l.borrowed_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("l.borrowed_at <= $%d", len(args)))
	}

	q := `
		SELECT l.id, l.user_id, l.book_id, l.copy_id, l.status, l.borrowed_at,
			l.due_date, l.returned_at, l.fine_amount, l.notes, l.created_at,
			u.name, b.title, b.author, c.barcode
		FROM loans l
		JOIN users u ON u.id = l.user_id
		JOIN books b ON b.id = l.book_id
		LEFT JOIN copies c ON c.id = l.copy_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY l.borrowed_at DESC, l.id DESC"
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

	var out []DetailRow
	for rows.Next() {
		var d DetailRow
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.BookID, &d.CopyID, &d.Status, &d.BorrowedAt,
			&d.DueDate, &d.ReturnedAt, &d.FineAmount, &d.Notes, &d.CreatedAt,
			&d.UserName, &d.BookTitle, &d.BookAuthor, &d.CopyBarcode,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repo) Statistics(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('borrowed','overdue')),
			COUNT(*) FILTER (WHERE status = 'overdue'),
			COUNT(*) FILTER (WHERE status = 'returned'),
			COALESCE(SUM(fine_amount),0)
		FROM loans`,
	).Scan(&s.TotalLoans, &s.ActiveLoans, &s.OverdueLoans, &s.ReturnedLoans, &s.TotalFines)
	if err != nil {
		return nil, err
	}
	return s, nil
}
