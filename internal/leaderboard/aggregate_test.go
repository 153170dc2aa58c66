package leaderboard

import (
	"fmt"
	"testing"

	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/scoring"
)

// enrollment builds an enrollment whose TotalPoints agrees with its
// submissions, as the recorder guarantees.
func enrollment(first, last string, subs ...model.TaskMetrics) model.Enrollment {
	var total int64
	for _, s := range subs {
		total += scoring.Points(s)
	}
	return model.Enrollment{
		UserChallengeID: first + last,
		User:            model.LeaderboardUser{FirstName: first, LastName: last, UniqueCode: "C" + first},
		TotalPoints:     total,
		Submissions:     subs,
	}
}

// fixture is a mid-sized challenge with deliberate ties.
func fixture() []model.Enrollment {
	var es []model.Enrollment
	for i := 0; i < 23; i++ {
		es = append(es, enrollment(
			fmt.Sprintf("User%02d", i), "Tester",
			model.TaskMetrics{UpworkOutreach: int64(i % 5), JobApplications: int64(i % 3)},
			model.TaskMetrics{NoOfClients: int64(i % 2)},
		))
	}
	es = append(es, enrollment("Jane", "Doe", model.TaskMetrics{UpworkOutreach: 2, NoOfClients: 1}))
	return es
}

// =========================================================================
// SEARCH
// =========================================================================

func TestMatchesName(t *testing.T) {
	jane := model.LeaderboardUser{FirstName: "Jane", LastName: "Doe"}

	tests := []struct {
		query string
		want  bool
	}{
		{"jane", true},
		{"DOE", true},
		{"ane do", true},
		{"  Jane  ", true},
		{"", true},
		{"john", false},
		{"janedoe", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := MatchesName(jane, tt.query); got != tt.want {
				t.Errorf("MatchesName(Jane Doe, %q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestBuild_SearchCountsBeforeSlicing(t *testing.T) {
	rows, p := Build(fixture(), Query{Search: "user1", PageSize: 3, SortBy: DefaultSortKey, Desc: true})

	// User10..User19
	if p.Total != 10 {
		t.Errorf("Total = %d, want 10", p.Total)
	}
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want 3", len(rows))
	}
	if p.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", p.TotalPages)
	}
}

// =========================================================================
// AGGREGATION
// =========================================================================

func TestAggregate(t *testing.T) {
	es := []model.Enrollment{
		enrollment("Jane", "Doe",
			model.TaskMetrics{UpworkOutreach: 2, NoOfClients: 1},
			model.TaskMetrics{UpworkOutreach: 3, EarningsInDollars: 40},
		),
		enrollment("Empty", "Person"),
	}

	rows := Aggregate(es, false)

	if rows[0].AggregatedTasks.UpworkOutreach != 5 || rows[0].AggregatedTasks.EarningsInDollars != 40 {
		t.Errorf("aggregated = %+v", rows[0].AggregatedTasks)
	}
	if rows[0].TotalPoints != 30+55 {
		t.Errorf("TotalPoints = %d, want 85", rows[0].TotalPoints)
	}
	if rows[1].AggregatedTasks != (model.TaskMetrics{}) {
		t.Errorf("no submissions should aggregate to zero, got %+v", rows[1].AggregatedTasks)
	}
	if rows[0].User.UniqueCode != "" {
		t.Error("public rows must not carry unique codes")
	}

	if admin := Aggregate(es, true); admin[0].User.UniqueCode != "CJane" {
		t.Errorf("admin row code = %q", admin[0].User.UniqueCode)
	}
}

// The read path trusts the stored counter, even when it disagrees.
func TestAggregate_UsesStoredTotal(t *testing.T) {
	e := enrollment("Jane", "Doe", model.TaskMetrics{UpworkOutreach: 1})
	e.TotalPoints = 999

	if rows := Aggregate([]model.Enrollment{e}, false); rows[0].TotalPoints != 999 {
		t.Errorf("TotalPoints = %d, want stored 999", rows[0].TotalPoints)
	}
}

// =========================================================================
// SORTING
// =========================================================================

func TestResolveSort(t *testing.T) {
	tests := []struct {
		sortBy, sortDir string
		wantKey         string
		wantDesc        bool
	}{
		{"", "", DefaultSortKey, true},
		{"noOfClients", "asc", "noOfClients", false},
		{"noOfClients", "ASC", "noOfClients", false},
		{"noOfClients", "desc", "noOfClients", true},
		{"bogus", "asc", DefaultSortKey, false},
		{"totalPoints", "sideways", DefaultSortKey, true},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.sortDir, func(t *testing.T) {
			key, desc := ResolveSort(tt.sortBy, tt.sortDir)
			if key != tt.wantKey || desc != tt.wantDesc {
				t.Errorf("ResolveSort() = (%q, %v), want (%q, %v)", key, desc, tt.wantKey, tt.wantDesc)
			}
		})
	}
}

func TestSort_MonotonicForEveryKey(t *testing.T) {
	keys := []string{DefaultSortKey}
	for _, mt := range scoring.Schema {
		keys = append(keys, mt.Name)
	}

	for _, key := range keys {
		for _, desc := range []bool{true, false} {
			t.Run(fmt.Sprintf("%s desc=%v", key, desc), func(t *testing.T) {
				rows := Aggregate(fixture(), false)
				Sort(rows, key, desc)

				get := sortKeys[key]
				for i := 1; i < len(rows); i++ {
					prev, cur := get(rows[i-1]), get(rows[i])
					if desc && cur > prev {
						t.Fatalf("row %d: %d after %d in descending order", i, cur, prev)
					}
					if !desc && cur < prev {
						t.Fatalf("row %d: %d after %d in ascending order", i, cur, prev)
					}
				}
			})
		}
	}
}

func TestSort_StableTies(t *testing.T) {
	es := []model.Enrollment{
		enrollment("A", "x", model.TaskMetrics{NoOfClients: 1}),
		enrollment("B", "x", model.TaskMetrics{NoOfClients: 1}),
		enrollment("C", "x", model.TaskMetrics{NoOfClients: 2}),
		enrollment("D", "x", model.TaskMetrics{NoOfClients: 1}),
	}

	for _, desc := range []bool{true, false} {
		rows := Aggregate(es, false)
		Sort(rows, "noOfClients", desc)

		var tied []string
		for _, r := range rows {
			if r.AggregatedTasks.NoOfClients == 1 {
				tied = append(tied, r.User.FirstName)
			}
		}
		if fmt.Sprint(tied) != "[A B D]" {
			t.Errorf("desc=%v: tied rows in order %v, want enrollment order [A B D]", desc, tied)
		}
	}
}

func TestBuild_Scenario(t *testing.T) {
	es := []model.Enrollment{
		enrollment("Other", "Person", model.TaskMetrics{SocialMediaEngagements: 3}),
		enrollment("Jane", "Doe", model.TaskMetrics{UpworkOutreach: 2, NoOfClients: 1}),
	}

	rows, _ := Build(es, Query{PageSize: 10, SortBy: DefaultSortKey, Desc: true})

	if rows[0].User.FirstName != "Jane" || rows[0].Rank != 1 {
		t.Fatalf("first row = %+v, want Jane at rank 1", rows[0])
	}
	if rows[0].TotalPoints != 30 || rows[0].AggregatedTasks.UpworkOutreach != 2 {
		t.Errorf("Jane's row = %+v", rows[0])
	}
}

// =========================================================================
// PAGINATION
// =========================================================================

func TestBuild_PagesConcatenateToFullOrder(t *testing.T) {
	es := fixture()

	for _, size := range []int{1, 3, 7, 10, 24, 50} {
		t.Run(fmt.Sprintf("pageSize=%d", size), func(t *testing.T) {
			full, _ := Build(es, Query{Page: 0, PageSize: len(es), SortBy: "jobApplications", Desc: true})

			var joined []Row
			for page := 0; ; page++ {
				rows, p := Build(es, Query{Page: page, PageSize: size, SortBy: "jobApplications", Desc: true})
				if p.Total != len(es) {
					t.Fatalf("Total = %d, want %d", p.Total, len(es))
				}
				if len(rows) == 0 {
					break
				}
				joined = append(joined, rows...)
			}

			if len(joined) != len(full) {
				t.Fatalf("pages hold %d rows, full set %d", len(joined), len(full))
			}
			seen := map[string]bool{}
			for i := range full {
				if joined[i].User != full[i].User || joined[i].Rank != i+1 {
					t.Fatalf("row %d = %+v, want %+v", i, joined[i], full[i])
				}
				if seen[joined[i].User.FirstName] {
					t.Fatalf("%s appears twice", joined[i].User.FirstName)
				}
				seen[joined[i].User.FirstName] = true
			}
		})
	}
}

func TestPaginate_Bounds(t *testing.T) {
	rows := Aggregate(fixture(), false)

	tests := []struct {
		name           string
		page, pageSize int
		wantLen        int
	}{
		{"first page", 0, 10, 10},
		{"last partial page", 2, 10, 4},
		{"past the end", 3, 10, 0},
		{"zero page size", 0, 0, 0},
		{"negative page", -1, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Paginate(rows, tt.page, tt.pageSize); len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestNormalizePaging(t *testing.T) {
	tests := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"", "", 0, 10},
		{"2", "25", 2, 25},
		{"-1", "0", 0, 10},
		{"abc", "xyz", 0, 10},
		{"1", "1000", 1, MaxPageSize},
		{" 3 ", " 5 ", 3, 5},
	}

	for _, tt := range tests {
		page, size := NormalizePaging(tt.page, tt.size)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("NormalizePaging(%q, %q) = (%d, %d), want (%d, %d)",
				tt.page, tt.size, page, size, tt.wantPage, tt.wantSize)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	rows, p := Build(nil, Query{PageSize: 10})
	if len(rows) != 0 || p.Total != 0 || p.TotalPages != 0 {
		t.Errorf("Build(nil) = %v, %+v", rows, p)
	}
	if rows == nil {
		t.Error("rows must be an empty slice, not nil, so it encodes as []")
	}
}
