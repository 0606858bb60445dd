package pagination

const (
	// DefaultPerPage is the catalog page size when none is configured.
	DefaultPerPage = 2
	// MaxPerPage caps how many rows any page query can request.
	MaxPerPage = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Normalize clamps the page to >= 1 and the page size to (0, MaxPerPage].
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Page describes where the current page sits in the result set.
type Page struct {
	CurrentPage     int   `json:"current_page"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
	NextPage        int   `json:"next_page"`
	PreviousPage    int   `json:"previous_page"`
	LastPage        int   `json:"last_page"`
	TotalItems      int64 `json:"total_items"`
}

// NewPage computes navigation metadata for params against total rows.
func NewPage(params Params, total int64) Page {
	p := params.Normalize()
	perPage := int64(p.PerPage)

	lastPage := int((total + perPage - 1) / perPage)
	if lastPage < 1 {
		lastPage = 1
	}

	return Page{
		CurrentPage:     p.Page,
		HasNextPage:     perPage*int64(p.Page) < total,
		HasPreviousPage: p.Page > 1,
		NextPage:        p.Page + 1,
		PreviousPage:    p.Page - 1,
		LastPage:        lastPage,
		TotalItems:      total,
	}
}
