package booksvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FanProject516/perpus-app/model"
	bookrepo "github.com/FanProject516/perpus-app/repository/book"
)

var (
	ErrNotFound       = errors.New("book not found")
	ErrBadInput       = errors.New("bad input")
	ErrISBNTaken      = errors.New("isbn already registered")
	ErrBadCategory    = errors.New("category does not exist")
	ErrHasActiveLoans = errors.New("book has active loans")
)

type CreateInput struct {
	Title       string
	Author      string
	ISBN        *string
	Publisher   *string
	Year        *int
	CategoryID  *int64
	Summary     *string
	TotalCopies int64
	Condition   model.Condition
	Location    *string
}

// UpdateInput carries partial updates; nil means unchanged.
type UpdateInput struct {
	Title       *string
	Author      *string
	ISBN        *string
	Publisher   *string
	Year        *int
	CategoryID  *int64
	Summary     *string
	TotalCopies *int64
	Condition   *model.Condition
	Location    *string
	IsAvailable *bool
}

// Repo is the slice of the book repository this service needs; satisfied by
// bookrepo.Repo.
type Repo interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, b *model.Book) error
	ByID(ctx context.Context, id int64) (*model.Book, error)
	ByIDForUpdate(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f bookrepo.ListFilter) ([]model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	HasActiveLoans(ctx context.Context, bookID int64) (bool, error)
	ListCopies(ctx context.Context, bookID int64) ([]model.Copy, error)
	AddCopies(ctx context.Context, bookID int64, copies []model.Copy) error
	Statistics(ctx context.Context) (*bookrepo.Stats, error)
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*model.Book, error)
	List(ctx context.Context, f bookrepo.ListFilter) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, []model.Copy, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*model.Book, error)
	Delete(ctx context.Context, id int64) error
	AddCopies(ctx context.Context, bookID int64, count int, condition model.Condition, location *string) ([]model.Copy, error)
	Statistics(ctx context.Context) (*bookrepo.Stats, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, in CreateInput) (*model.Book, error) {
	if in.Title == "" || in.Author == "" || in.TotalCopies < 1 {
		return nil, ErrBadInput
	}
	if in.Condition == "" {
		in.Condition = model.ConditionGood
	}

	b := &model.Book{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		Publisher:       in.Publisher,
		Year:            in.Year,
		CategoryID:      in.CategoryID,
		Summary:         in.Summary,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		Condition:       in.Condition,
		Location:        in.Location,
		IsAvailable:     true,
	}
	if err := s.r.Create(ctx, b); err != nil {
		return nil, mapPgErr(err)
	}
	return b, nil
}

func (s *service) List(ctx context.Context, f bookrepo.ListFilter) ([]model.Book, error) {
	return s.r.List(ctx, f)
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, []model.Copy, error) {
	b, err := s.r.ByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, ErrNotFound
	}
	copies, err := s.r.ListCopies(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return b, copies, nil
}

func (s *service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Book, error) {
	var out *model.Book
	err := s.r.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.r.ByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}

		if in.Title != nil {
			b.Title = *in.Title
		}
		if in.Author != nil {
			b.Author = *in.Author
		}
		if in.ISBN != nil {
			b.ISBN = in.ISBN
		}
		if in.Publisher != nil {
			b.Publisher = in.Publisher
		}
		if in.Year != nil {
			b.Year = in.Year
		}
		if in.CategoryID != nil {
			b.CategoryID = in.CategoryID
		}
		if in.Summary != nil {
			b.Summary = in.Summary
		}
		if in.Condition != nil {
			b.Condition = *in.Condition
		}
		if in.Location != nil {
			b.Location = in.Location
		}
		if in.IsAvailable != nil {
			b.IsAvailable = *in.IsAvailable
		}
		if in.TotalCopies != nil {
			if *in.TotalCopies < 1 {
				return ErrBadInput
			}
			// Keep the number of copies currently out stable; the counter
			// absorbs the rest of the change, floored at zero.
			borrowed := b.TotalCopies - b.AvailableCopies
			b.TotalCopies = *in.TotalCopies
			b.AvailableCopies = max(0, *in.TotalCopies-borrowed)
		}

		if err := s.r.Update(ctx, b); err != nil {
			return mapPgErr(err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	b, err := s.r.ByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrNotFound
	}
	active, err := s.r.HasActiveLoans(ctx, id)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveLoans
	}
	return s.r.Delete(ctx, id)
}

func (s *service) AddCopies(ctx context.Context, bookID int64, count int, condition model.Condition, location *string) ([]model.Copy, error) {
	if count < 1 {
		return nil, ErrBadInput
	}
	if condition == "" {
		condition = model.ConditionGood
	}

	copies := make([]model.Copy, count)
	for i := range copies {
		copies[i] = model.Copy{
			BookID:      bookID,
			Barcode:     fmt.Sprintf("CP-%d-%s", bookID, uuid.NewString()[:8]),
			Condition:   condition,
			Location:    location,
			IsAvailable: true,
		}
	}

	err := s.r.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.r.ByIDForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}
		return s.r.AddCopies(ctx, bookID, copies)
	})
	if err != nil {
		return nil, mapPgErr(err)
	}
	return copies, nil
}

func (s *service) Statistics(ctx context.Context) (*bookrepo.Stats, error) {
	return s.r.Statistics(ctx)
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrISBNTaken
		case pgerrcode.ForeignKeyViolation:
			return ErrBadCategory
		}
	}
	return err
}
