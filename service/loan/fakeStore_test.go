package loansvc

import (
	"context"
	"sort"
	"time"

	"github.com/FanProject516/perpus-app/model"
	loanrepo "github.com/FanProject516/perpus-app/repository/loan"
)

// fakeState is shared in-memory relational state. fakeLoans and fakeCatalog
// are the two repository views over it, like the real loan and book repos
// share one database. WithTx snapshots the state and restores it when the
// closure fails, mirroring a transaction rollback.
type fakeState struct {
	books  map[int64]*model.Book
	copies map[int64]*model.Copy
	loans  map[int64]*model.Loan

	nextCopyID int64
	nextLoanID int64

	insertLoanErr  error // injected failure after copy allocation
	markOverdueErr map[int64]error
}

type fakeLoans struct{ *fakeState }

type fakeCatalog struct{ *fakeState }

func newFakeState(books []model.Book, copies []model.Copy, loans []model.Loan) *fakeState {
	f := &fakeState{
		books:          map[int64]*model.Book{},
		copies:         map[int64]*model.Copy{},
		loans:          map[int64]*model.Loan{},
		nextCopyID:     1,
		nextLoanID:     1,
		markOverdueErr: map[int64]error{},
	}
	for i := range books {
		b := books[i]
		f.books[b.ID] = &b
	}
	for i := range copies {
		c := copies[i]
		f.copies[c.ID] = &c
		if c.ID >= f.nextCopyID {
			f.nextCopyID = c.ID + 1
		}
	}
	for i := range loans {
		l := loans[i]
		f.loans[l.ID] = &l
		if l.ID >= f.nextLoanID {
			f.nextLoanID = l.ID + 1
		}
	}
	return f
}

func (f *fakeState) snapshot() (map[int64]*model.Book, map[int64]*model.Copy, map[int64]*model.Loan) {
	books := make(map[int64]*model.Book, len(f.books))
	for id, b := range f.books {
		cp := *b
		books[id] = &cp
	}
	copies := make(map[int64]*model.Copy, len(f.copies))
	for id, c := range f.copies {
		cp := *c
		copies[id] = &cp
	}
	loans := make(map[int64]*model.Loan, len(f.loans))
	for id, l := range f.loans {
		cp := *l
		loans[id] = &cp
	}
	return books, copies, loans
}

// --- LoanStore ---

func (f fakeLoans) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	books, copies, loans := f.snapshot()
	if err := fn(ctx); err != nil {
		f.books, f.copies, f.loans = books, copies, loans
		return err
	}
	return nil
}

func (f fakeLoans) Insert(ctx context.Context, l *model.Loan) error {
	if f.insertLoanErr != nil {
		return f.insertLoanErr
	}
	l.ID = f.nextLoanID
	f.nextLoanID++
	cp := *l
	f.loans[l.ID] = &cp
	return nil
}

func (f fakeLoans) ByID(ctx context.Context, id int64) (*model.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f fakeLoans) ByIDForUpdate(ctx context.Context, id int64) (*model.Loan, error) {
	return f.ByID(ctx, id)
}

func (f fakeLoans) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	n := 0
	for _, l := range f.loans {
		if l.UserID == userID && l.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (f fakeLoans) HasActiveForBook(ctx context.Context, userID, bookID int64) (bool, error) {
	for _, l := range f.loans {
		if l.UserID == userID && l.BookID == bookID && l.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeLoans) MarkReturned(ctx context.Context, id int64, returnedAt time.Time, fine float64) error {
	l := f.loans[id]
	l.Status = model.LoanReturned
	l.ReturnedAt = &returnedAt
	l.FineAmount = fine
	return nil
}

func (f fakeLoans) MarkOverdue(ctx context.Context, id int64, fine float64) error {
	if err := f.markOverdueErr[id]; err != nil {
		return err
	}
	l := f.loans[id]
	l.Status = model.LoanOverdue
	l.FineAmount = fine
	return nil
}

func (f fakeLoans) SetDueDate(ctx context.Context, id int64, due time.Time) error {
	f.loans[id].DueDate = due
	return nil
}

func (f fakeLoans) ListStaleBorrowed(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	for id, l := range f.loans {
		if l.Status == model.LoanBorrowed && l.DueDate.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f fakeLoans) List(ctx context.Context, filter loanrepo.ListFilter) ([]loanrepo.DetailRow, error) {
	var out []loanrepo.DetailRow
	for _, l := range f.loans {
		if filter.UserID > 0 && l.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.ActiveOnly && !l.Status.Active() {
			continue
		}
		out = append(out, loanrepo.DetailRow{Loan: *l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeLoans) Statistics(ctx context.Context) (*loanrepo.Stats, error) {
	s := &loanrepo.Stats{}
	for _, l := range f.loans {
		s.TotalLoans++
		s.TotalFines += l.FineAmount
		switch {
		case l.Status == model.LoanOverdue:
			s.ActiveLoans++
			s.OverdueLoans++
		case l.Status == model.LoanBorrowed:
			s.ActiveLoans++
		case l.Status == model.LoanReturned:
			s.ReturnedLoans++
		}
	}
	return s, nil
}

// --- CatalogStore ---

func (f fakeCatalog) ByIDForUpdate(ctx context.Context, id int64) (*model.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (f fakeCatalog) FindAvailableCopyForUpdate(ctx context.Context, bookID int64) (*model.Copy, error) {
	var ids []int64
	for id, c := range f.copies {
		if c.BookID == bookID && c.IsAvailable {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	cp := *f.copies[ids[0]]
	return &cp, nil
}

func (f fakeCatalog) MarkCopyBorrowed(ctx context.Context, copyID int64) error {
	f.copies[copyID].IsAvailable = false
	return nil
}

func (f fakeCatalog) InsertCopy(ctx context.Context, c *model.Copy) error {
	c.ID = f.nextCopyID
	f.nextCopyID++
	cp := *c
	f.copies[c.ID] = &cp
	return nil
}

func (f fakeCatalog) ReleaseCopy(ctx context.Context, copyID int64) error {
	if c, ok := f.copies[copyID]; ok {
		c.IsAvailable = true
	}
	return nil
}

func (f fakeCatalog) DecreaseAvailable(ctx context.Context, bookID int64) (bool, error) {
	b := f.books[bookID]
	if b.AvailableCopies <= 0 {
		return true, nil
	}
	b.AvailableCopies--
	return false, nil
}

func (f fakeCatalog) IncreaseAvailable(ctx context.Context, bookID int64) error {
	b := f.books[bookID]
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
	return nil
}
