package domain

const (
	DefaultPageLimit = 30
	MaxPageLimit     = 1000

	// MaxPageOffset bounds how far into a listing a page may start. Requests
	// beyond it get the last reachable page, which is empty for any realistic
	// collection.
	MaxPageOffset = 1<<31 - 1
)

// Page is one slice of an offset-paginated listing.
type Page[T any] struct {
	Docs        []T  `json:"docs"`
	TotalDocs   int  `json:"totalDocs"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasPrevPage bool `json:"hasPrevPage"`
	HasNextPage bool `json:"hasNextPage"`
	PrevPage    *int `json:"prevPage"`
	NextPage    *int `json:"nextPage"`
	PageCounter int  `json:"pageCounter"`
}

// Window resolves the requested limit, page and offset. The limit is clamped
// to [1, MaxPageLimit] and defaults to DefaultPageLimit. A positive offset
// wins over page; otherwise page defaults to 1. The resulting offset never
// exceeds MaxPageOffset, so the page arithmetic cannot overflow.
func Window(limit, page, offset int) (lim, pg, off int) {
	lim = limit
	if lim <= 0 {
		lim = DefaultPageLimit
	}
	if lim > MaxPageLimit {
		lim = MaxPageLimit
	}

	if offset > 0 {
		off = min(offset, MaxPageOffset)
		return lim, off/lim + 1, off
	}

	pg = min(max(page, 1), MaxPageOffset/lim+1)
	return lim, pg, (pg - 1) * lim
}

// NewPage assembles the pagination metadata around docs.
func NewPage[T any](docs []T, total, limit, page, offset int) Page[T] {
	if docs == nil {
		docs = []T{}
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	p := Page[T]{
		Docs:        docs,
		TotalDocs:   total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		PageCounter: offset + 1,
	}

	if page > 1 {
		prev := page - 1
		p.HasPrevPage = true
		p.PrevPage = &prev
	}
	if page < totalPages {
		next := page + 1
		p.HasNextPage = true
		p.NextPage = &next
	}
	return p
}
