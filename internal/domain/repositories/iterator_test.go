package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	pages   [][][]byte
	index   int
	fetches int
	failAt  int // page index that fails; -1 for none
	closed  bool
}

func newFakePages(pages ...[][]byte) *fakePages {
	return &fakePages{pages: pages, failAt: -1}
}

func (p *fakePages) More() bool { return p.index < len(p.pages) }

func (p *fakePages) NextPage(_ context.Context) ([][]byte, error) {
	if p.index == p.failAt {
		return nil, errors.New("page fetch failed")
	}
	page := p.pages[p.index]
	p.index++
	p.fetches++
	return page, nil
}

func (p *fakePages) Close() error {
	p.closed = true
	return nil
}

type testItem struct {
	ID string `json:"id"`
}

func TestIteratorAll(t *testing.T) {
	pages := newFakePages(
		[][]byte{[]byte(`{"id":"a"}`), []byte(`{"id":"b"}`)},
		[][]byte{[]byte(`{"id":"c"}`)},
	)

	items, err := NewIterator[testItem](pages, nil).All(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.True(t, pages.closed)
}

func TestIteratorAllEmpty(t *testing.T) {
	items, err := NewIterator[testItem](newFakePages(), nil).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIteratorFetchesPagesLazily(t *testing.T) {
	pages := newFakePages(
		[][]byte{[]byte(`{"id":"a"}`), []byte(`{"id":"b"}`)},
		[][]byte{[]byte(`{"id":"c"}`)},
	)
	it := NewIterator[testItem](pages, nil)
	ctx := context.Background()

	require.True(t, it.Next(ctx))
	require.True(t, it.Next(ctx))
	assert.Equal(t, 1, pages.fetches)

	// The second page is only fetched once the first is consumed.
	require.True(t, it.Next(ctx))
	assert.Equal(t, 2, pages.fetches)
}

func TestIteratorEarlyClose(t *testing.T) {
	pages := newFakePages(
		[][]byte{[]byte(`{"id":"a"}`)},
		[][]byte{[]byte(`{"id":"b"}`)},
	)
	it := NewIterator[testItem](pages, nil)
	ctx := context.Background()

	require.True(t, it.Next(ctx))
	require.NoError(t, it.Close())
	assert.True(t, pages.closed)

	assert.False(t, it.Next(ctx))
	assert.NoError(t, it.Err())
	assert.Equal(t, 1, pages.fetches)
}

func TestIteratorPageError(t *testing.T) {
	pages := newFakePages(
		[][]byte{[]byte(`{"id":"a"}`)},
		[][]byte{[]byte(`{"id":"b"}`)},
	)
	pages.failAt = 1
	it := NewIterator[testItem](pages, nil)
	ctx := context.Background()

	require.True(t, it.Next(ctx))
	assert.False(t, it.Next(ctx))
	assert.ErrorContains(t, it.Err(), "page fetch failed")
	assert.True(t, pages.closed)
}

func TestIteratorDecodeError(t *testing.T) {
	pages := newFakePages([][]byte{[]byte(`not json`)})
	it := NewIterator[testItem](pages, nil)

	assert.False(t, it.Next(context.Background()))
	assert.ErrorContains(t, it.Err(), "decode item")

	_, err := NewIterator[testItem](newFakePages([][]byte{[]byte(`{`)}), nil).All(context.Background())
	assert.Error(t, err)
}

func TestIteratorVisitHook(t *testing.T) {
	pages := newFakePages([][]byte{[]byte(`{"id":"a"}`), []byte(`{"id":"b"}`)})
	visited := make([]string, 0)
	it := NewIterator[testItem](pages, func(_ context.Context, item *testItem) error {
		visited = append(visited, item.ID)
		item.ID = item.ID + "!"
		return nil
	})
	ctx := context.Background()

	require.True(t, it.Next(ctx))
	// The hook already ran when the item is first observable.
	assert.Equal(t, []string{"a"}, visited)
	assert.Equal(t, "a!", it.Item().ID)
}

func TestIteratorVisitError(t *testing.T) {
	pages := newFakePages([][]byte{[]byte(`{"id":"a"}`)})
	wantErr := errors.New("population failed")
	it := NewIterator[testItem](pages, func(_ context.Context, _ *testItem) error {
		return wantErr
	})

	assert.False(t, it.Next(context.Background()))
	assert.ErrorIs(t, it.Err(), wantErr)
	assert.True(t, pages.closed)
}

func TestIteratorSkipsEmptyPages(t *testing.T) {
	pages := newFakePages(
		[][]byte{},
		[][]byte{[]byte(`{"id":"a"}`)},
	)
	it := NewIterator[testItem](pages, nil)
	ctx := context.Background()

	require.True(t, it.Next(ctx))
	assert.Equal(t, "a", it.Item().ID)
	assert.False(t, it.Next(ctx))
	assert.NoError(t, it.Err())
}
