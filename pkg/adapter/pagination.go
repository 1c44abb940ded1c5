package adapter

import (
	"net/url"
	"strconv"

	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// Paginated is implemented by root collections that know their page.
type Paginated interface {
	CurrentPage() int
	TotalPages() int
	PageSize() int
}

// Page is a ready-made paginated collection.
type Page struct {
	Items  any
	Number int
	Total  int
	Size   int
}

// CurrentPage implements Paginated.
func (p Page) CurrentPage() int { return p.Number }

// TotalPages implements Paginated.
func (p Page) TotalPages() int { return p.Total }

// PageSize implements Paginated.
func (p Page) PageSize() int { return p.Size }

// Elements implements Elements.
func (p Page) Elements() any { return p.Items }

// NewPage slices items for page number (1-based) of the given size.
func NewPage[T any](items []T, number, size int) Page {
	if size < 1 {
		size = 1
	}
	if number < 1 {
		number = 1
	}
	total := (len(items) + size - 1) / size
	start := (number - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return Page{Items: items[start:end], Number: number, Total: total, Size: size}
}

// PaginationLinks builds self, first, prev, next and last links from the request URL and
// query parameters, replacing page[number] and page[size]. prev and next are nil at the
// edges; an empty collection has one page.
func PaginationLinks(p Paginated, ctx *serializer.Context) map[string]any {
	current := p.CurrentPage()
	last := p.TotalPages()
	if last < 1 {
		last = 1
	}

	links := map[string]any{
		"self":  pageURL(ctx, current, p.PageSize()),
		"first": pageURL(ctx, 1, p.PageSize()),
		"last":  pageURL(ctx, last, p.PageSize()),
		"prev":  nil,
		"next":  nil,
	}
	if current > 1 {
		links["prev"] = pageURL(ctx, current-1, p.PageSize())
	}
	if current < last {
		links["next"] = pageURL(ctx, current+1, p.PageSize())
	}
	return links
}

func pageURL(ctx *serializer.Context, number, size int) string {
	u, err := url.Parse(ctx.RequestURL)
	if err != nil {
		u = &url.URL{Path: ctx.RequestURL}
	}

	q := u.Query()
	for k, values := range ctx.QueryParameters {
		q[k] = append([]string(nil), values...)
	}
	q.Set("page[number]", strconv.Itoa(number))
	q.Set("page[size]", strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return u.String()
}
