package booksvc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FanProject516/perpus-app/model"
	bookrepo "github.com/FanProject516/perpus-app/repository/book"
)

type repoMock struct {
	createFn         func(ctx context.Context, b *model.Book) error
	byIDFn           func(ctx context.Context, id int64) (*model.Book, error)
	listFn           func(ctx context.Context, f bookrepo.ListFilter) ([]model.Book, error)
	updateFn         func(ctx context.Context, b *model.Book) error
	deleteFn         func(ctx context.Context, id int64) error
	hasActiveLoansFn func(ctx context.Context, bookID int64) (bool, error)
	listCopiesFn     func(ctx context.Context, bookID int64) ([]model.Copy, error)
	addCopiesFn      func(ctx context.Context, bookID int64, copies []model.Copy) error
	statisticsFn     func(ctx context.Context) (*bookrepo.Stats, error)
}

var _ Repo = (*repoMock)(nil)

func (m *repoMock) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
func (m *repoMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *repoMock) ByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.byIDFn(ctx, id)
}
func (m *repoMock) ByIDForUpdate(ctx context.Context, id int64) (*model.Book, error) {
	return m.byIDFn(ctx, id)
}
func (m *repoMock) List(ctx context.Context, f bookrepo.ListFilter) ([]model.Book, error) {
	return m.listFn(ctx, f)
}
func (m *repoMock) Update(ctx context.Context, b *model.Book) error { return m.updateFn(ctx, b) }
func (m *repoMock) Delete(ctx context.Context, id int64) error      { return m.deleteFn(ctx, id) }
func (m *repoMock) HasActiveLoans(ctx context.Context, bookID int64) (bool, error) {
	return m.hasActiveLoansFn(ctx, bookID)
}
func (m *repoMock) ListCopies(ctx context.Context, bookID int64) ([]model.Copy, error) {
	return m.listCopiesFn(ctx, bookID)
}
func (m *repoMock) AddCopies(ctx context.Context, bookID int64, copies []model.Copy) error {
	return m.addCopiesFn(ctx, bookID, copies)
}
func (m *repoMock) Statistics(ctx context.Context) (*bookrepo.Stats, error) {
	return m.statisticsFn(ctx)
}

func TestCreate_Validation(t *testing.T) {
	s := New(&repoMock{})
	ctx := context.Background()

	_, err := s.Create(ctx, CreateInput{Author: "a", TotalCopies: 1})
	require.ErrorIs(t, err, ErrBadInput)

	_, err = s.Create(ctx, CreateInput{Title: "t", TotalCopies: 1})
	require.ErrorIs(t, err, ErrBadInput)

	_, err = s.Create(ctx, CreateInput{Title: "t", Author: "a", TotalCopies: 0})
	require.ErrorIs(t, err, ErrBadInput)
}

func TestCreate_Success(t *testing.T) {
	m := &repoMock{
		createFn: func(ctx context.Context, b *model.Book) error {
			b.ID = 42
			return nil
		},
	}
	s := New(m)

	b, err := s.Create(context.Background(), CreateInput{
		Title: "Bumi Manusia", Author: "Pramoedya Ananta Toer", TotalCopies: 3,
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), b.ID)
	require.Equal(t, int64(3), b.AvailableCopies)
	require.Equal(t, model.ConditionGood, b.Condition)
	require.True(t, b.IsAvailable)
}

func TestUpdate_TotalCopiesKeepsBorrowedStable(t *testing.T) {
	// 5 total, 2 available → 3 out on loan.
	stored := &model.Book{ID: 1, Title: "t", Author: "a", TotalCopies: 5, AvailableCopies: 2, IsAvailable: true}
	var saved *model.Book
	m := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			cp := *stored
			return &cp, nil
		},
		updateFn: func(ctx context.Context, b *model.Book) error {
			saved = b
			return nil
		},
	}
	s := New(m)

	newTotal := int64(4)
	b, err := s.Update(context.Background(), 1, UpdateInput{TotalCopies: &newTotal})
	require.NoError(t, err)
	require.Equal(t, int64(4), b.TotalCopies)
	require.Equal(t, int64(1), b.AvailableCopies)
	require.NotNil(t, saved)

	// Shrinking below the borrowed count floors the counter at zero.
	newTotal = 2
	b, err = s.Update(context.Background(), 1, UpdateInput{TotalCopies: &newTotal})
	require.NoError(t, err)
	require.Equal(t, int64(0), b.AvailableCopies)
}

func TestUpdate_NotFound(t *testing.T) {
	m := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return nil, nil },
	}
	s := New(m)

	title := "x"
	_, err := s.Update(context.Background(), 99, UpdateInput{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_BlockedByActiveLoans(t *testing.T) {
	m := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id}, nil
		},
		hasActiveLoansFn: func(ctx context.Context, bookID int64) (bool, error) { return true, nil },
	}
	s := New(m)

	err := s.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrHasActiveLoans)
}

func TestAddCopies(t *testing.T) {
	var inserted []model.Copy
	m := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id}, nil
		},
		addCopiesFn: func(ctx context.Context, bookID int64, copies []model.Copy) error {
			inserted = copies
			return nil
		},
	}
	s := New(m)

	copies, err := s.AddCopies(context.Background(), 7, 3, "", nil)
	require.NoError(t, err)
	require.Len(t, copies, 3)
	require.Len(t, inserted, 3)
	for _, c := range copies {
		require.Equal(t, int64(7), c.BookID)
		require.Equal(t, model.ConditionGood, c.Condition)
		require.True(t, c.IsAvailable)
		require.True(t, strings.HasPrefix(c.Barcode, "CP-7-"))
	}

	_, err = s.AddCopies(context.Background(), 7, 0, "", nil)
	require.ErrorIs(t, err, ErrBadInput)
}
