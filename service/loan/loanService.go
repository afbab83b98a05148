package loansvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FanProject516/perpus-app/model"
	loanrepo "github.com/FanProject516/perpus-app/repository/loan"
	"github.com/FanProject516/perpus-app/util/clock"
)

// CatalogStore is the slice of the book repository the loan engine drives.
// Copy rows and the availability counter must move together; every borrow
// and return goes through here inside one transaction.
type CatalogStore interface {
	ByIDForUpdate(ctx context.Context, id int64) (*model.Book, error)
	FindAvailableCopyForUpdate(ctx context.Context, bookID int64) (*model.Copy, error)
	MarkCopyBorrowed(ctx context.Context, copyID int64) error
	InsertCopy(ctx context.Context, c *model.Copy) error
	ReleaseCopy(ctx context.Context, copyID int64) error
	DecreaseAvailable(ctx context.Context, bookID int64) (floored bool, err error)
	IncreaseAvailable(ctx context.Context, bookID int64) error
}

// LoanStore persists loans. WithTx runs its closure inside one transaction;
// the other methods join it through the context.
type LoanStore interface {
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
	List(ctx context.Context, f loanrepo.ListFilter) ([]loanrepo.DetailRow, error)
	Statistics(ctx context.Context) (*loanrepo.Stats, error)
}

type Service interface {
	// Borrow validates eligibility, allocates a copy and creates the loan
	// as one atomic unit.
	Borrow(ctx context.Context, userID int64, role string, bookID int64, requestedDue *time.Time) (*model.Loan, error)

	// Return finalizes the fine, frees the copy and restores availability.
	Return(ctx context.Context, loanID int64) (*model.Loan, error)

	// Extend pushes the due date of an on-time borrowed loan.
	Extend(ctx context.Context, loanID int64, days int) (*model.Loan, error)

	// MarkOverdue transitions a stale borrowed loan; reports applied=false
	// when the transition is not applicable.
	MarkOverdue(ctx context.Context, loanID int64) (applied bool, err error)

	// SweepOverdue batch-transitions all stale borrowed loans.
	SweepOverdue(ctx context.Context) (int, error)

	ByID(ctx context.Context, loanID int64) (*model.Loan, error)
	List(ctx context.Context, f loanrepo.ListFilter) ([]loanrepo.DetailRow, error)
	Statistics(ctx context.Context) (*loanrepo.Stats, error)
}

type service struct {
	loans   LoanStore
	catalog CatalogStore
	clk     clock.Clock
	policy  Policy
	log     *slog.Logger
}

func New(loans LoanStore, catalog CatalogStore, clk clock.Clock, policy Policy, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{loans: loans, catalog: catalog, clk: clk, policy: policy, log: log}
}

const fallbackLocation = "Main Library"

func (s *service) Borrow(ctx context.Context, userID int64, role string, bookID int64, requestedDue *time.Time) (*model.Loan, error) {
	now := s.clk.Now()

	due, err := s.resolveDueDate(requestedDue, now)
	if err != nil {
		return nil, err
	}

	loan := &model.Loan{
		UserID:     userID,
		BookID:     bookID,
		Status:     model.LoanBorrowed,
		BorrowedAt: now,
		DueDate:    due,
	}

	err = s.loans.WithTx(ctx, func(ctx context.Context) error {
		// Book row lock serializes concurrent borrows per book.
		book, err := s.catalog.ByIDForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return makeErr(ErrNotFound, "book not found")
		}

		active, err := s.loans.CountActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if cap := s.policy.CapFor(role); active >= cap {
			return makeErr(ErrLimitExceeded, fmt.Sprintf("maximum loan limit (%d) reached", cap))
		}

		if !book.IsAvailable || book.AvailableCopies <= 0 {
			return makeErr(ErrUnavailable, "book is not available for loan")
		}

		dup, err := s.loans.HasActiveForBook(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return makeErr(ErrConflict, "user already has this book on loan")
		}

		cp, err := s.allocateCopy(ctx, book, now)
		if err != nil {
			return err
		}
		loan.CopyID = &cp.ID

		if err := s.loans.Insert(ctx, loan); err != nil {
			return err
		}

		floored, err := s.catalog.DecreaseAvailable(ctx, bookID)
		if err != nil {
			return err
		}
		if floored {
			s.log.Warn("availability counter hit floor, copy state out of sync",
				"book_id", bookID, "loan_id", loan.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// allocateCopy takes the lowest-id free copy, or synthesizes one when the
// counter says capacity exists but no discrete copy row is free.
func (s *service) allocateCopy(ctx context.Context, book *model.Book, now time.Time) (*model.Copy, error) {
	cp, err := s.catalog.FindAvailableCopyForUpdate(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		if err := s.catalog.MarkCopyBorrowed(ctx, cp.ID); err != nil {
			return nil, err
		}
		cp.IsAvailable = false
		return cp, nil
	}

	location := book.Location
	if location == nil {
		fallback := fallbackLocation
		location = &fallback
	}
	cp = &model.Copy{
		BookID:      book.ID,
		Barcode:     fmt.Sprintf("AUTO-%d-%d", book.ID, now.Unix()),
		Condition:   model.ConditionGood,
		Location:    location,
		IsAvailable: false,
	}
	if err := s.catalog.InsertCopy(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *service) Return(ctx context.Context, loanID int64) (*model.Loan, error) {
	now := s.clk.Now()
	var out *model.Loan

	err := s.loans.WithTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.ByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if loan == nil {
			return makeErr(ErrNotFound, "loan not found")
		}
		if loan.Status == model.LoanReturned {
			return makeErr(ErrConflict, "book is already returned")
		}
		if !loan.Status.Active() {
			return makeErr(ErrConflict, "invalid loan status for return")
		}

		// Fine is finalized as of return time; it may exceed the amount
		// stored when the loan first went overdue.
		fine := CalculateFine(loan.DueDate, now, s.policy.DailyFineRate)

		if err := s.loans.MarkReturned(ctx, loanID, now, fine); err != nil {
			return err
		}
		if loan.CopyID != nil {
			if err := s.catalog.ReleaseCopy(ctx, *loan.CopyID); err != nil {
				return err
			}
		}
		if err := s.catalog.IncreaseAvailable(ctx, loan.BookID); err != nil {
			return err
		}

		loan.Status = model.LoanReturned
		loan.ReturnedAt = &now
		loan.FineAmount = fine
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Extend(ctx context.Context, loanID int64, days int) (*model.Loan, error) {
	if days < s.policy.MinExtendDays || days > s.policy.MaxExtendDays {
		return nil, makeErr(ErrValidation,
			fmt.Sprintf("days must be between %d and %d", s.policy.MinExtendDays, s.policy.MaxExtendDays))
	}

	now := s.clk.Now()
	var out *model.Loan

	err := s.loans.WithTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.ByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if loan == nil {
			return makeErr(ErrNotFound, "loan not found")
		}
		if loan.Status != model.LoanBorrowed {
			return makeErr(ErrConflict, "can only extend borrowed loans")
		}
		if loan.DueDate.Before(now) {
			return makeErr(ErrConflict, "cannot extend overdue loans")
		}

		due := loan.DueDate.AddDate(0, 0, days)
		if err := s.loans.SetDueDate(ctx, loanID, due); err != nil {
			return err
		}
		loan.DueDate = due
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) MarkOverdue(ctx context.Context, loanID int64) (bool, error) {
	now := s.clk.Now()
	applied := false

	err := s.loans.WithTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.ByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if loan == nil {
			return makeErr(ErrNotFound, "loan not found")
		}
		// Not applicable is a quiet outcome, not an error.
		if loan.Status != model.LoanBorrowed || !now.After(loan.DueDate) {
			return nil
		}

		fine := CalculateFine(loan.DueDate, now, s.policy.DailyFineRate)
		if err := s.loans.MarkOverdue(ctx, loanID, fine); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (s *service) ByID(ctx context.Context, loanID int64) (*model.Loan, error) {
	loan, err := s.loans.ByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, makeErr(ErrNotFound, "loan not found")
	}
	return loan, nil
}

func (s *service) List(ctx context.Context, f loanrepo.ListFilter) ([]loanrepo.DetailRow, error) {
	if f.OverdueOnly && f.Now.IsZero() {
		f.Now = s.clk.Now()
	}
	return s.loans.List(ctx, f)
}

func (s *service) Statistics(ctx context.Context) (*loanrepo.Stats, error) {
	return s.loans.Statistics(ctx)
}

func (s *service) resolveDueDate(requested *time.Time, now time.Time) (time.Time, error) {
	if requested == nil {
		return now.AddDate(0, 0, s.policy.LoanPeriodDays), nil
	}
	today := now.Truncate(24 * time.Hour)
	if !requested.Truncate(24 * time.Hour).After(today) {
		return time.Time{}, makeErr(ErrValidation, "due date must be after today")
	}
	return requested.UTC(), nil
}
