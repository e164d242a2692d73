// Package pagination splits a counted result set into fixed-size pages and
// resolves the page requested through the "page" query parameter.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPage is returned when the requested page is not a number or
// lies outside the available range. Handlers answer it with 404.
var ErrInvalidPage = errors.New("pagination: invalid page")

// Page describes one page of a result set.
type Page struct {
	Number   int // 1-based
	NumPages int
	PerPage  int
	Total    int
}

// Paginate resolves raw (the "page" parameter) against total items split
// into pages of perPage. An empty raw value means page 1, "last" selects
// the final page. The first page of an empty result set is valid.
func Paginate(total, perPage int, raw string) (Page, error) {
	if perPage < 1 {
		perPage = 1
	}
	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	p := Page{NumPages: numPages, PerPage: perPage, Total: total}

	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		p.Number = 1
	case "last":
		p.Number = numPages
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > numPages {
			return Page{}, ErrInvalidPage
		}
		p.Number = n
	}
	return p, nil
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Limit is the page size, suitable for a LIMIT clause.
func (p Page) Limit() int { return p.PerPage }

func (p Page) HasNext() bool     { return p.Number < p.NumPages }
func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasOtherPages() bool {
	return p.NumPages > 1
}

func (p Page) NextNumber() int     { return p.Number + 1 }
func (p Page) PreviousNumber() int { return p.Number - 1 }

// StartIndex is the 1-based index of the first item on the page, or 0 when
// there are no items.
func (p Page) StartIndex() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndIndex is the 1-based index of the last item on the page.
func (p Page) EndIndex() int {
	end := p.Number * p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return end
}

// Numbers lists every page number, for rendering page links.
func (p Page) Numbers() []int {
	nums := make([]int, p.NumPages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}
