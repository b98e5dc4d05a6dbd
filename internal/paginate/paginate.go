// Package paginate slices ordered collections into fixed-size pages.
//
// Counting and slicing are delegated to a Source so the store only ever
// loads the rows of the requested page.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 10

// Source is an ordered collection that can be counted and sliced.
type Source[T any] interface {
	Count(ctx context.Context) (int64, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// SourceFuncs adapts a pair of functions to a Source.
type SourceFuncs[T any] struct {
	CountFn func(ctx context.Context) (int64, error)
	SliceFn func(ctx context.Context, offset, limit int) ([]T, error)
}

func (s SourceFuncs[T]) Count(ctx context.Context) (int64, error) { return s.CountFn(ctx) }

func (s SourceFuncs[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	return s.SliceFn(ctx, offset, limit)
}

// SliceSource serves an already loaded slice.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int64, error) { return int64(len(s)), nil }

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return []T{}, nil
	}
	end := min(offset+limit, len(s))
	return s[offset:end], nil
}

// Page is one window of a paginated collection.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p *Page[T]) NextNumber() int     { return p.Number + 1 }
func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

// PageRange lists every page number, starting at 1.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}

// StartIndex is the 1-based position of the first item on the page, or 0
// for an empty collection.
func (p *Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}

// Paginator pages through a Source.
type Paginator[T any] struct {
	source  Source[T]
	perPage int
}

// New returns a paginator; a non-positive perPage falls back to DefaultPerPage.
func New[T any](source Source[T], perPage int) *Paginator[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Paginator[T]{source: source, perPage: perPage}
}

// LastPage is what ParseNumber returns for an integer that cannot name a
// page; GetPage clamps it to the last one.
const LastPage = math.MaxInt

// ParseNumber reads a raw page parameter. Missing and non-integer values
// mean page 1. Integers below 1 or too large to represent return LastPage.
func ParseNumber(raw string) int {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 0)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return LastPage
	case err != nil:
		return 1
	case n < 1:
		return LastPage
	}
	return int(n)
}

// GetPage returns the requested page. It never fails on a bad number: the
// number is parsed with ParseNumber and clamped to the last page, and an
// empty collection yields a single empty page.
func (p *Paginator[T]) GetPage(ctx context.Context, raw string) (*Page[T], error) {
	count, err := p.source.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	numPages := 1
	if count > 0 {
		numPages = int((count + int64(p.perPage) - 1) / int64(p.perPage))
	}
	number := min(ParseNumber(raw), numPages)

	page := &Page[T]{
		Items:    []T{},
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  p.perPage,
	}
	if count == 0 {
		return page, nil
	}

	items, err := p.source.Slice(ctx, (number-1)*p.perPage, p.perPage)
	if err != nil {
		return nil, fmt.Errorf("slice page %d: %w", number, err)
	}
	page.Items = items
	return page, nil
}
