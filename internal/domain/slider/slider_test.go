package slider

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memRepo struct {
	sliders map[string]*Slider
}

func (m *memRepo) Get(_ context.Context, id string) (*Slider, error) {
	s, ok := m.sliders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, activeOnly bool) ([]Slider, error) {
	var out []Slider
	for _, s := range m.sliders {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memRepo) NextPosition(_ context.Context) (int, error) {
	max := 0
	for _, s := range m.sliders {
		if s.Position > max {
			max = s.Position
		}
	}
	return max + 1, nil
}

func (m *memRepo) Create(_ context.Context, s *Slider) error {
	cp := *s
	m.sliders[s.ID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, s *Slider) error {
	if _, ok := m.sliders[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.sliders[s.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	delete(m.sliders, id)
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id string, active bool) error {
	s, ok := m.sliders[id]
	if !ok {
		return ErrNotFound
	}
	s.Active = active
	return nil
}

func (m *memRepo) Reorder(_ context.Context, orderedIDs []string) error {
	for i, id := range orderedIDs {
		s, ok := m.sliders[id]
		if !ok {
			return ErrNotFound
		}
		s.Position = i + 1
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	repo := &memRepo{sliders: map[string]*Slider{}}
	svc := NewService(repo, zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestCreate_AppendsAtEnd(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.Create(context.Background(), CreateRequest{Title: "Summer Sale", ImageURL: "https://cdn/x.jpg"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateRequest{Title: "New Arrivals", ImageURL: "https://cdn/y.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
	assert.True(t, first.Active, "new sliders start active")
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateRequest{Subtitle: "no title or image"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"title", "imageUrl"}, vErr.MissingFields)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	s, err := svc.Create(context.Background(), CreateRequest{Title: "Sale", ImageURL: "https://cdn/x.jpg"})
	require.NoError(t, err)

	subtitle := "Up to 50% off"
	updated, err := svc.Update(context.Background(), s.ID, UpdateRequest{Subtitle: &subtitle})
	require.NoError(t, err)
	assert.Equal(t, "Sale", updated.Title, "unset fields untouched")
	assert.Equal(t, subtitle, updated.Subtitle)

	empty := ""
	_, err = svc.Update(context.Background(), s.ID, UpdateRequest{Title: &empty})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSetActive_FiltersListing(t *testing.T) {
	svc, _ := newTestService(t)
	a, _ := svc.Create(context.Background(), CreateRequest{Title: "A", ImageURL: "https://cdn/a.jpg"})
	b, _ := svc.Create(context.Background(), CreateRequest{Title: "B", ImageURL: "https://cdn/b.jpg"})

	require.NoError(t, svc.SetActive(context.Background(), a.ID, false))

	active, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReorder(t *testing.T) {
	svc, repo := newTestService(t)
	a, _ := svc.Create(context.Background(), CreateRequest{Title: "A", ImageURL: "https://cdn/a.jpg"})
	b, _ := svc.Create(context.Background(), CreateRequest{Title: "B", ImageURL: "https://cdn/b.jpg"})
	c, _ := svc.Create(context.Background(), CreateRequest{Title: "C", ImageURL: "https://cdn/c.jpg"})

	require.NoError(t, svc.Reorder(context.Background(), []string{c.ID, a.ID, b.ID}))
	assert.Equal(t, 1, repo.sliders[c.ID].Position)
	assert.Equal(t, 2, repo.sliders[a.ID].Position)
	assert.Equal(t, 3, repo.sliders[b.ID].Position)

	err := svc.Reorder(context.Background(), []string{a.ID, "ghost"})
	require.Error(t, err)
}

func TestDelete_Unknown(t *testing.T) {
	svc, _ := newTestService(t)
	require.ErrorIs(t, svc.Delete(context.Background(), "ghost"), ErrNotFound)
}
