package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a paginated response envelope.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Page slices items by offset and limit. A limit of zero or less returns
// everything from offset on.
func Page[T any](items []T, offset, limit int) PageBody[T] {
	total := len(items)
	offset = max(0, min(offset, total))
	end := total
	if limit > 0 {
		end = min(total, offset+limit)
	} else {
		limit = total
	}
	return PageBody[T]{Total: total, Offset: offset, Limit: limit, Data: items[offset:end]}
}

// PaginationLinks returns first/prev/next/last Link header values.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, basePath, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(0, p.Offset-p.Limit), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := max(0, ((p.Total-1)/p.Limit)*p.Limit)
	return append(links, link(last, "last"))
}
