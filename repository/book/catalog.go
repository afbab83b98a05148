package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/FanProject516/perpus-app/model"
	"github.com/FanProject516/perpus-app/util/database"
)

// Catalog engine: copy rows are ground truth for which physical item is out,
// the books.available_copies counter is the fast-path cache. Every mutation
// here keeps the two in lockstep; callers must not touch one without the
// other. All methods join the transaction carried on the context.

func (r *repo) FindAvailableCopyForUpdate(ctx context.Context, bookID int64) (*model.Copy, error) {
	q := database.From(ctx, r.db)
	c := &model.Copy{}
	// Lowest id wins so selection is deterministic.
	err := q.QueryRowContext(ctx, `
		SELECT id, book_id, barcode, condition, location, is_available, notes, created_at
		FROM copies
		WHERE book_id = $1 AND is_available
		ORDER BY id
		FOR UPDATE
		LIMIT 1`,
		bookID,
	).Scan(&c.ID, &c.BookID, &c.Barcode, &c.Condition, &c.Location, &c.IsAvailable,
		&c.Notes, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) MarkCopyBorrowed(ctx context.Context, copyID int64) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE copies
		SET is_available = FALSE
		WHERE id = $1`, copyID)
	return err
}

func (r *repo) InsertCopy(ctx context.Context, c *model.Copy) error {
	q := database.From(ctx, r.db)
	return q.QueryRowContext(ctx, `
		INSERT INTO copies (book_id, barcode, condition, location, is_available, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		c.BookID, c.Barcode, c.Condition, c.Location, c.IsAvailable, c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
}

// ReleaseCopy marks a copy available. Releasing an already-available copy is
// a no-op, not an error.
func (r *repo) ReleaseCopy(ctx context.Context, copyID int64) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE copies
		SET is_available = TRUE
		WHERE id = $1`, copyID)
	return err
}

// DecreaseAvailable decrements the availability counter, floored at zero.
// A floor hit means the counter and copy rows drifted apart; the caller
// should log it rather than fail the operation.
func (r *repo) DecreaseAvailable(ctx context.Context, bookID int64) (bool, error) {
	q := database.From(ctx, r.db)
	res, err := q.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = $1 AND available_copies > 0`, bookID)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 0, nil
}

// IncreaseAvailable increments the availability counter, capped at
// total_copies.
func (r *repo) IncreaseAvailable(ctx context.Context, bookID int64) error {
	q := database.From(ctx, r.db)
	_, err := q.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE id = $1 AND available_copies < total_copies`, bookID)
	return err
}
