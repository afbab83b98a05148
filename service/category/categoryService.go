package categorysvc

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FanProject516/perpus-app/model"
)

var (
	ErrNotFound     = errors.New("category not found")
	ErrBadInput     = errors.New("bad input")
	ErrNameTaken    = errors.New("category name already exists")
	ErrBadParent    = errors.New("parent category does not exist")
	ErrCircularTree = errors.New("parent change would create a cycle")
	ErrHasBooks     = errors.New("category still has books")
	ErrHasChildren  = errors.New("category still has children")
)

// Repo is satisfied by categoryrepo.Repo.
type Repo interface {
	Create(ctx context.Context, c *model.Category) error
	ByID(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context, activeOnly, rootOnly bool) ([]model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id int64) error
	HasChildren(ctx context.Context, id int64) (bool, error)
	HasBooks(ctx context.Context, id int64) (bool, error)
}

type Service interface {
	Create(ctx context.Context, c *model.Category) error
	List(ctx context.Context, activeOnly, rootOnly bool) ([]model.Category, error)
	Tree(ctx context.Context) ([]*model.CategoryNode, error)
	Detail(ctx context.Context, id int64) (*model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id int64) error
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, c *model.Category) error {
	if c.Name == "" {
		return ErrBadInput
	}
	if err := s.r.Create(ctx, c); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func (s *service) List(ctx context.Context, activeOnly, rootOnly bool) ([]model.Category, error) {
	return s.r.List(ctx, activeOnly, rootOnly)
}

// Tree assembles the full category hierarchy in memory; orphans whose
// parent is missing surface as roots rather than disappearing.
func (s *service) Tree(ctx context.Context) ([]*model.CategoryNode, error) {
	all, err := s.r.List(ctx, false, false)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*model.CategoryNode, len(all))
	for i := range all {
		nodes[all[i].ID] = &model.CategoryNode{Category: all[i], Children: []*model.CategoryNode{}}
	}

	var roots []*model.CategoryNode
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return roots, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.r.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, c *model.Category) error {
	existing, err := s.r.ByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	if c.Name == "" {
		return ErrBadInput
	}
	if c.ParentID != nil {
		if err := s.checkNoCycle(ctx, c.ID, *c.ParentID); err != nil {
			return err
		}
	}
	if err := s.r.Update(ctx, c); err != nil {
		return mapPgErr(err)
	}
	return nil
}

// checkNoCycle walks up from the proposed parent; hitting the category
// itself means the reparent would loop.
func (s *service) checkNoCycle(ctx context.Context, id, parentID int64) error {
	for cur := &parentID; cur != nil; {
		if *cur == id {
			return ErrCircularTree
		}
		p, err := s.r.ByID(ctx, *cur)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrBadParent
		}
		cur = p.ParentID
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	c, err := s.r.ByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	if hasChildren, err := s.r.HasChildren(ctx, id); err != nil {
		return err
	} else if hasChildren {
		return ErrHasChildren
	}
	if hasBooks, err := s.r.HasBooks(ctx, id); err != nil {
		return err
	} else if hasBooks {
		return ErrHasBooks
	}
	return s.r.Delete(ctx, id)
}

func sortNodes(nodes []*model.CategoryNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrNameTaken
		case pgerrcode.ForeignKeyViolation:
			return ErrBadParent
		}
	}
	return err
}
