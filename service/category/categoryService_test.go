package categorysvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FanProject516/perpus-app/model"
)

// treeMock serves categories from a fixed slice.
type treeMock struct {
	cats        []model.Category
	deleted     []int64
	hasBooks    map[int64]bool
	hasChildren map[int64]bool
}

var _ Repo = (*treeMock)(nil)

func (m *treeMock) Create(ctx context.Context, c *model.Category) error {
	c.ID = int64(len(m.cats) + 1)
	m.cats = append(m.cats, *c)
	return nil
}

func (m *treeMock) ByID(ctx context.Context, id int64) (*model.Category, error) {
	for i := range m.cats {
		if m.cats[i].ID == id {
			cp := m.cats[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *treeMock) List(ctx context.Context, activeOnly, rootOnly bool) ([]model.Category, error) {
	var out []model.Category
	for _, c := range m.cats {
		if activeOnly && !c.IsActive {
			continue
		}
		if rootOnly && c.ParentID != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *treeMock) Update(ctx context.Context, c *model.Category) error {
	for i := range m.cats {
		if m.cats[i].ID == c.ID {
			m.cats[i] = *c
			return nil
		}
	}
	return nil
}

func (m *treeMock) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *treeMock) HasChildren(ctx context.Context, id int64) (bool, error) {
	return m.hasChildren[id], nil
}

func (m *treeMock) HasBooks(ctx context.Context, id int64) (bool, error) {
	return m.hasBooks[id], nil
}

func parent(id int64) *int64 { return &id }

func TestTree(t *testing.T) {
	m := &treeMock{cats: []model.Category{
		{ID: 1, Name: "Fiction", IsActive: true},
		{ID: 2, Name: "Science", IsActive: true},
		{ID: 3, Name: "Novels", ParentID: parent(1), IsActive: true},
		{ID: 4, Name: "Classics", ParentID: parent(3), IsActive: true},
	}}
	s := New(m)

	roots, err := s.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)
	require.Equal(t, "Fiction", roots[0].Name)
	require.Equal(t, "Science", roots[1].Name)
	require.Len(t, roots[0].Children, 1)
	require.Equal(t, "Novels", roots[0].Children[0].Name)
	require.Len(t, roots[0].Children[0].Children, 1)
	require.Equal(t, "Classics", roots[0].Children[0].Children[0].Name)
}

func TestUpdate_CycleDetection(t *testing.T) {
	m := &treeMock{cats: []model.Category{
		{ID: 1, Name: "Fiction"},
		{ID: 2, Name: "Novels", ParentID: parent(1)},
		{ID: 3, Name: "Classics", ParentID: parent(2)},
	}}
	s := New(m)

	// Reparenting Fiction under its own grandchild loops.
	err := s.Update(context.Background(), &model.Category{ID: 1, Name: "Fiction", ParentID: parent(3)})
	require.ErrorIs(t, err, ErrCircularTree)

	// A category cannot be its own parent.
	err = s.Update(context.Background(), &model.Category{ID: 2, Name: "Novels", ParentID: parent(2)})
	require.ErrorIs(t, err, ErrCircularTree)

	// Valid reparent passes.
	err = s.Update(context.Background(), &model.Category{ID: 3, Name: "Classics", ParentID: parent(1)})
	require.NoError(t, err)
}

func TestUpdate_MissingParent(t *testing.T) {
	m := &treeMock{cats: []model.Category{{ID: 1, Name: "Fiction"}}}
	s := New(m)

	err := s.Update(context.Background(), &model.Category{ID: 1, Name: "Fiction", ParentID: parent(99)})
	require.ErrorIs(t, err, ErrBadParent)
}

func TestDelete_Guards(t *testing.T) {
	m := &treeMock{
		cats: []model.Category{
			{ID: 1, Name: "Fiction"},
			{ID: 2, Name: "Science"},
			{ID: 3, Name: "History"},
		},
		hasChildren: map[int64]bool{1: true},
		hasBooks:    map[int64]bool{2: true},
	}
	s := New(m)
	ctx := context.Background()

	require.ErrorIs(t, s.Delete(ctx, 1), ErrHasChildren)
	require.ErrorIs(t, s.Delete(ctx, 2), ErrHasBooks)
	require.ErrorIs(t, s.Delete(ctx, 99), ErrNotFound)

	require.NoError(t, s.Delete(ctx, 3))
	require.Equal(t, []int64{3}, m.deleted)
}
