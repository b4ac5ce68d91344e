package shared

import (
	"net/http"
	"strconv"
)

// Pagination is a limit/offset window read from the query string. Callers may pass
// either limit/offset or page/pageSize (1-based); limit/offset wins when both are set.
type Pagination struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	p := Pagination{Limit: defaultLimit}

	if size, ok := positiveInt(q.Get("pageSize")); ok {
		p.Limit = size
	}
	if limit, ok := positiveInt(q.Get("limit")); ok {
		p.Limit = limit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	if page, ok := positiveInt(q.Get("page")); ok {
		p.Offset = (page - 1) * p.Limit
	}
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			p.Offset = v
		}
	}
	return p
}

func positiveInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
