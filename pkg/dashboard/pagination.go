package dashboard

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// PageItem is either a page link or a gap marker
type PageItem struct {
	Page     int
	Current  bool
	Ellipsis bool
}

type Pagination struct {
	Current      int
	TotalPages   int
	Items        []PageItem
	PrevDisabled bool
	NextDisabled bool
}

// Paginate computes the page links for total items. Links are shown for the
// first, the last and the pages next to current. A gap is marked at current±2.
func Paginate(total, pageSize, current int) Pagination {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := (total + pageSize - 1) / pageSize
	current = max(1, min(current, totalPages))
	p := Pagination{
		Current:      current,
		TotalPages:   totalPages,
		PrevDisabled: current <= 1,
		NextDisabled: current >= totalPages,
	}
	for i := 1; i <= totalPages; i++ {
		switch {
		case i == 1 || i == totalPages || (i >= current-1 && i <= current+1):
			p.Items = append(p.Items, PageItem{Page: i, Current: i == current})
		case i == current-2 || i == current+2:
			p.Items = append(p.Items, PageItem{Ellipsis: true})
		}
	}
	return p
}

// Hidden reports whether pagination controls are to be omitted
func (p Pagination) Hidden() bool {
	return p.TotalPages <= 1
}

// Valid reports whether page may be selected
func (p Pagination) Valid(page int) bool {
	return page >= 1 && page <= p.TotalPages
}

// String renders the controls, e.g. "< 1 ... [4] 5 >". Disabled arrows are
// rendered as blanks.
func (p Pagination) String() string {
	if p.Hidden() {
		return ""
	}
	parts := make([]string, 0, len(p.Items)+2)
	parts = append(parts, lo.Ternary(p.PrevDisabled, " ", "<"))
	for _, it := range p.Items {
		switch {
		case it.Ellipsis:
			parts = append(parts, "...")
		case it.Current:
			parts = append(parts, "["+strconv.Itoa(it.Page)+"]")
		default:
			parts = append(parts, strconv.Itoa(it.Page))
		}
	}
	parts = append(parts, lo.Ternary(p.NextDisabled, " ", ">"))
	return strings.Join(parts, " ")
}
