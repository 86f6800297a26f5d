// Package feed slices post listings into fixed-size pages.
package feed

import "strconv"

const (
	// PerPage is the number of posts on every feed page.
	PerPage = 10
	// GroupCap limits the group feed to its most recent posts.
	GroupCap = 12
)

// Window describes one page of a listing of Total items.
type Window struct {
	Number   int
	NumPages int
	Total    int
	Offset   int
	Limit    int
}

// Paginate picks the page named by pageParam. A missing or malformed value is
// page 1, and out-of-range numbers clamp to the first or last page. An empty
// listing still has one (empty) page.
func Paginate(total, perPage int, pageParam string) Window {
	if perPage <= 0 {
		perPage = PerPage
	}
	if total < 0 {
		total = 0
	}
	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number, err := strconv.Atoi(pageParam)
	switch {
	case err != nil:
		number = 1
	case number < 1:
		number = 1
	case number > numPages:
		number = numPages
	}

	offset := (number - 1) * perPage
	limit := perPage
	if rest := total - offset; rest < limit {
		limit = max(rest, 0)
	}
	return Window{Number: number, NumPages: numPages, Total: total, Offset: offset, Limit: limit}
}

// Capped truncates a listing size to at most limit items.
func Capped(total, limit int) int {
	return min(total, limit)
}

func (w Window) HasPrevious() bool { return w.Number > 1 }
func (w Window) HasNext() bool     { return w.Number < w.NumPages }
func (w Window) HasOtherPages() bool {
	return w.NumPages > 1
}
func (w Window) PreviousNumber() int { return w.Number - 1 }
func (w Window) NextNumber() int     { return w.Number + 1 }

// Pages lists every page number, for the paginator links.
func (w Window) Pages() []int {
	pages := make([]int, w.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
