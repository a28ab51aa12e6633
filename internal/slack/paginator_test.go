package slack

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves pages[i] for cursor "c<i>", with "" as the first page.
type pagedSource struct {
	pages   [][]int
	cursors []string
	failAt  int
}

func (s *pagedSource) fetch(_ context.Context, cursor string) ([]int, string, error) {
	s.cursors = append(s.cursors, cursor)

	idx := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "c%d", &idx); err != nil {
			return nil, "", err
		}
	}
	if s.failAt > 0 && idx == s.failAt {
		return nil, "", errors.New("page failed")
	}

	next := ""
	if idx+1 < len(s.pages) {
		next = fmt.Sprintf("c%d", idx+1)
	}
	return s.pages[idx], next, nil
}

func TestPaginate_VisitsEveryPageOnce(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d pages", n), func(t *testing.T) {
			src := &pagedSource{}
			var want []int
			for i := 0; i < n; i++ {
				// Page sizes vary and include empty pages.
				var page []int
				for j := 0; j < i%3; j++ {
					page = append(page, i*10+j)
				}
				src.pages = append(src.pages, page)
				want = append(want, page...)
			}

			var got []int
			for item, err := range Paginate(context.Background(), src.fetch) {
				require.NoError(t, err)
				got = append(got, item)
			}

			assert.Equal(t, want, got)
			require.Len(t, src.cursors, n)
			assert.Equal(t, "", src.cursors[0])
			for i := 1; i < n; i++ {
				assert.Equal(t, fmt.Sprintf("c%d", i), src.cursors[i])
			}
		})
	}
}

func TestPaginate_RestartsFromFirstPage(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1, 2}, {3}}}
	seq := Paginate(context.Background(), src.fetch)

	for range 2 {
		var got []int
		for item, err := range seq {
			require.NoError(t, err)
			got = append(got, item)
		}
		assert.Equal(t, []int{1, 2, 3}, got)
	}
	assert.Equal(t, []string{"", "c1", "", "c1"}, src.cursors)
}

func TestPaginate_EarlyBreakStopsFetching(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1, 2}, {3, 4}, {5}}}

	for item, err := range Paginate(context.Background(), src.fetch) {
		require.NoError(t, err)
		if item == 2 {
			break
		}
	}
	assert.Equal(t, []string{""}, src.cursors)
}

func TestPaginate_ErrorEndsSequence(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1}, {2}, {3}}, failAt: 1}

	var got []int
	var gotErr error
	for item, err := range Paginate(context.Background(), src.fetch) {
		if err != nil {
			gotErr = err
			continue
		}
		got = append(got, item)
	}

	assert.Equal(t, []int{1}, got)
	assert.EqualError(t, gotErr, "page failed")
	assert.Equal(t, []string{"", "c1"}, src.cursors)
}

func TestPaginate_CancelBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &pagedSource{pages: [][]int{{1}, {2}}}

	var gotErr error
	for item, err := range Paginate(ctx, src.fetch) {
		if err != nil {
			gotErr = err
			break
		}
		if item == 1 {
			cancel()
		}
	}

	assert.True(t, IsCanceled(gotErr))
	assert.Equal(t, []string{""}, src.cursors)
}

func TestPager_Next(t *testing.T) {
	src := &pagedSource{pages: [][]int{{1}, {2, 3}}}
	p := NewPager(src.fetch)

	assert.True(t, p.HasNext())
	items, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
	assert.True(t, p.HasNext())

	items, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, items)
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.Pages())

	items, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Len(t, src.cursors, 2, "no fetch after the last page")
}

func TestPaginate_RepeatedCursorStops(t *testing.T) {
	tests := []struct {
		name        string
		next        map[string]string
		wantCursors []string
		wantItems   int
	}{
		{
			name:        "same cursor every page",
			next:        map[string]string{"": "same", "same": "same"},
			wantCursors: []string{"", "same"},
			wantItems:   2,
		},
		{
			name:        "two cursor cycle",
			next:        map[string]string{"": "a", "a": "b", "b": "a"},
			wantCursors: []string{"", "a", "b"},
			wantItems:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cursors []string
			fetch := func(_ context.Context, cursor string) ([]string, string, error) {
				cursors = append(cursors, cursor)
				return []string{"page " + cursor}, tt.next[cursor], nil
			}

			var items int
			var gotErr error
			for _, err := range Paginate(context.Background(), fetch) {
				if err != nil {
					gotErr = err
					continue
				}
				items++
			}

			require.ErrorIs(t, gotErr, ErrCursorRepeated)
			assert.Equal(t, tt.wantCursors, cursors)
			assert.Equal(t, tt.wantItems, items)
		})
	}
}
