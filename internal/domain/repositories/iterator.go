package repositories

import (
	"context"
	"encoding/json"
	"fmt"
)

// Pages is a paged source of raw JSON documents, typically a document store
// query result.
type Pages interface {
	More() bool
	NextPage(ctx context.Context) ([][]byte, error)
	Close() error
}

// Iterator lazily decodes a paged document source into items. The next page
// is not fetched until the consumer asks for more, so stopping early leaves
// remaining pages unread. A visit hook runs on every decoded item before it
// is yielded; repositories use it to populate derived fields, so consumers
// never see a half-built item.
type Iterator[T any] struct {
	pages  Pages
	visit  func(ctx context.Context, item *T) error
	buffer [][]byte
	item   *T
	err    error
	closed bool
}

// NewIterator builds an iterator over pages. visit may be nil.
func NewIterator[T any](pages Pages, visit func(ctx context.Context, item *T) error) *Iterator[T] {
	return &Iterator[T]{pages: pages, visit: visit}
}

// Next advances to the next item, fetching pages as needed. It returns
// false when the sequence is exhausted or failed; Err distinguishes the
// two.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil || it.closed {
		return false
	}
	for len(it.buffer) == 0 {
		if !it.pages.More() {
			_ = it.Close()
			return false
		}
		page, err := it.pages.NextPage(ctx)
		if err != nil {
			it.fail(err)
			return false
		}
		it.buffer = page
	}

	raw := it.buffer[0]
	it.buffer = it.buffer[1:]

	item := new(T)
	if err := json.Unmarshal(raw, item); err != nil {
		it.fail(fmt.Errorf("decode item: %w", err))
		return false
	}
	if it.visit != nil {
		if err := it.visit(ctx, item); err != nil {
			it.fail(err)
			return false
		}
	}
	it.item = item
	return true
}

// Item returns the item Next advanced to.
func (it *Iterator[T]) Item() *T { return it.item }

// Err returns the error that stopped iteration, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Close releases the underlying page source. It is safe to call more than
// once and after exhaustion.
func (it *Iterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.pages.Close()
}

// All drains the iterator and returns every remaining item.
func (it *Iterator[T]) All(ctx context.Context) ([]*T, error) {
	defer it.Close()

	items := make([]*T, 0)
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (it *Iterator[T]) fail(err error) {
	it.err = err
	_ = it.Close()
}
