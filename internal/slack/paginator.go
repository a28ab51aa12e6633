package slack

import (
	"context"
	"fmt"
	"iter"
)

// PageFunc fetches the page at cursor. An empty cursor requests the first
// page; an empty next cursor marks the last page.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Pager walks a cursor-paginated collection one page at a time.
// It never fetches a page twice and never goes backwards.
type Pager[T any] struct {
	fetch  PageFunc[T]
	cursor string
	done   bool
	pages  int
	sent   map[string]struct{}
}

// NewPager creates a Pager positioned before the first page.
func NewPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch, sent: make(map[string]struct{})}
}

// HasNext reports whether another page may be fetched.
func (p *Pager[T]) HasNext() bool {
	return !p.done
}

// Pages returns the number of pages fetched so far.
func (p *Pager[T]) Pages() int {
	return p.pages
}

// Next fetches the next page. Cancellation is checked before the request is
// made. A cursor is never sent twice; a server that repeats one ends the
// walk with ErrCursorRepeated. After the last page, or after an error,
// HasNext returns false.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		p.done = true
		return nil, canceled(err)
	}
	if p.cursor != "" {
		if _, ok := p.sent[p.cursor]; ok {
			p.done = true
			return nil, fmt.Errorf("%w: %q", ErrCursorRepeated, p.cursor)
		}
		p.sent[p.cursor] = struct{}{}
	}

	items, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		p.done = true
		return nil, err
	}

	p.pages++
	p.cursor = next
	if next == "" {
		p.done = true
	}
	return items, nil
}

// Paginate yields every item of every page. Each range over the returned
// sequence starts again from the first page; stopping early issues no
// further requests.
func Paginate[T any](ctx context.Context, fetch PageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		p := NewPager(fetch)
		for p.HasNext() {
			items, err := p.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}
