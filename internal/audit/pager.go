package audit

import "github.com/yildizm/dlgen/internal/api"

// WindowRadius is how many page numbers are shown on each side of the current page
const WindowRadius = 2

// Controls are the pagination buttons for one page
type Controls struct {
	Current      int
	Pages        []int
	PrevDisabled bool
	NextDisabled bool
	Total        int
}

// PageWindow returns the page numbers within WindowRadius of current, clipped to [1, total]
func PageWindow(current, total int) []int {
	if total < 1 {
		return nil
	}
	start := current - WindowRadius
	if start < 1 {
		start = 1
	}
	end := current + WindowRadius
	if end > total {
		end = total
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// NewControls derives the controls from a server pagination envelope.
// Prev and next follow has_prev and has_next, not the page arithmetic.
func NewControls(p api.Pagination) Controls {
	return Controls{
		Current:      p.CurrentPage,
		Pages:        PageWindow(p.CurrentPage, p.TotalPages),
		PrevDisabled: !p.HasPrev,
		NextDisabled: !p.HasNext,
		Total:        p.TotalPages,
	}
}
