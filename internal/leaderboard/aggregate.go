// Package leaderboard turns a challenge's enrollments into ranked, searchable,
// paginated standings.
//
// THE READ PATH:
//
//	enrollments ─► Filter(search) ─► Aggregate ─► Sort(key, dir) ─► rank ─► Paginate
//
// Every step after the repository call is a pure function over slices. The
// whole filtered set is sorted before slicing, so concatenating every page
// reproduces the full ordering exactly once.
//
// SORT DISPATCH:
// Instead of one branch per metric, sortKeys maps a sortBy value to an
// accessor over a Row. One comparator serves every key, and new metrics in
// scoring.Schema become sortable automatically.
package leaderboard

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/scoring"
)

const (
	// DefaultSortKey orders by the stored cumulative score.
	DefaultSortKey = "totalPoints"

	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Row is one line of the leaderboard.
type Row struct {
	Rank            int                   `json:"rank"`
	User            model.LeaderboardUser `json:"user"`
	TotalPoints     int64                 `json:"totalPoints"`
	AggregatedTasks model.TaskMetrics     `json:"aggregatedTasks"`
}

// Pagination describes the slice of rows returned.
type Pagination struct {
	Total      int `json:"total"`
	PageSize   int `json:"pageSize"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// Page is the response of GET /leaderboard.
type Page struct {
	Challenge  model.Challenge `json:"challenge"`
	Rows       []Row           `json:"leaderboard"`
	Pagination Pagination      `json:"pagination"`
}

// sortKeys maps every accepted sortBy value to its accessor.
var sortKeys = func() map[string]func(Row) int64 {
	keys := map[string]func(Row) int64{
		DefaultSortKey: func(r Row) int64 { return r.TotalPoints },
	}
	for _, mt := range scoring.Schema {
		keys[mt.Name] = func(r Row) int64 { return mt.Get(r.AggregatedTasks) }
	}
	return keys
}()

// ResolveSort validates sortBy and sortDir. Unknown keys fall back to
// totalPoints; anything but "asc" means descending. The direction applies
// to the fallback key too.
func ResolveSort(sortBy, sortDir string) (key string, desc bool) {
	key = sortBy
	if _, ok := sortKeys[key]; !ok {
		key = DefaultSortKey
	}
	return key, !strings.EqualFold(sortDir, "asc")
}

// NormalizePaging applies defaults to raw query values: page 0 and page
// size 10 when missing or invalid, page size capped at MaxPageSize.
func NormalizePaging(rawPage, rawPageSize string) (page, pageSize int) {
	page, err := strconv.Atoi(strings.TrimSpace(rawPage))
	if err != nil || page < 0 {
		page = 0
	}
	pageSize, err = strconv.Atoi(strings.TrimSpace(rawPageSize))
	if err != nil || pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, min(pageSize, MaxPageSize)
}

// MatchesName reports whether query occurs in the user's first name, last
// name or "first last", ignoring case. An empty query matches everyone.
func MatchesName(u model.LeaderboardUser, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	full := strings.ToLower(u.FirstName + " " + u.LastName)
	return strings.Contains(full, q)
}

// Filter keeps the enrollments whose user matches query. Order is preserved.
func Filter(es []model.Enrollment, query string) []model.Enrollment {
	out := make([]model.Enrollment, 0, len(es))
	for _, e := range es {
		if MatchesName(e.User, query) {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate folds each enrollment's submissions into one row. TotalPoints
// is the stored counter, not a recomputation.
func Aggregate(es []model.Enrollment, admin bool) []Row {
	rows := make([]Row, len(es))
	for i, e := range es {
		u := e.User
		if !admin {
			u.UniqueCode = ""
		}
		rows[i] = Row{
			User:            u,
			TotalPoints:     e.TotalPoints,
			AggregatedTasks: scoring.Sum(e.Submissions),
		}
	}
	return rows
}

// Sort orders rows in place by key. The sort is stable: rows with equal keys
// keep their input (enrollment) order in both directions.
func Sort(rows []Row, key string, desc bool) {
	get, ok := sortKeys[key]
	if !ok {
		get = sortKeys[DefaultSortKey]
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		c := cmp.Compare(get(a), get(b))
		if desc {
			return -c
		}
		return c
	})
}

// Rank numbers rows 1..n in their current order.
func Rank(rows []Row) {
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// Paginate returns rows[page*size : (page+1)*size], clamped. A page past the
// end is empty, never an error.
func Paginate(rows []Row, page, pageSize int) []Row {
	if pageSize <= 0 {
		return []Row{}
	}
	start := page * pageSize
	if start >= len(rows) || start < 0 {
		return []Row{}
	}
	end := min(start+pageSize, len(rows))
	return rows[start:end]
}

// TotalPages is ceil(total/pageSize). A client shows a pager only when it
// is greater than one.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Query is a validated leaderboard request.
type Query struct {
	ChallengeID string // empty means the current challenge
	Page        int
	PageSize    int
	Search      string
	SortBy      string
	Desc        bool
	Admin       bool // include unique codes
}

// Build runs the full pipeline over a challenge's enrollments.
func Build(es []model.Enrollment, q Query) ([]Row, Pagination) {
	filtered := Filter(es, q.Search)
	rows := Aggregate(filtered, q.Admin)
	Sort(rows, q.SortBy, q.Desc)
	Rank(rows)

	return Paginate(rows, q.Page, q.PageSize), Pagination{
		Total:      len(filtered),
		PageSize:   q.PageSize,
		Page:       q.Page,
		TotalPages: TotalPages(len(filtered), q.PageSize),
	}
}
