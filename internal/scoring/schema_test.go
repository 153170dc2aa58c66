package scoring

import (
	"math"
	"testing"

	"github.com/sakif/challenge-tracker/internal/model"
)

func TestSchemaWeights(t *testing.T) {
	want := map[string]int64{
		"upworkOutreach":           5,
		"socialMediaPosts":         3,
		"socialMediaEngagements":   1,
		"jobApplications":          5,
		"localOutreach":            2,
		"intlOutreach":             3,
		"ecommerceDeliveredOrders": 5,
		"noOfClients":              20,
		"earningsInDollars":        1,
	}

	got := Weights()
	if len(got) != len(want) {
		t.Fatalf("Weights() has %d entries, want %d", len(got), len(want))
	}
	for name, w := range want {
		if got[name] != w {
			t.Errorf("weight[%s] = %d, want %d", name, got[name], w)
		}
	}
}

// Every accessor must point at a distinct field, otherwise two metrics would
// silently share storage.
func TestSchemaAccessorsAreDistinct(t *testing.T) {
	var m model.TaskMetrics
	for i, mt := range Schema {
		*mt.Field(&m) = int64(i + 1)
	}
	for i, mt := range Schema {
		if got := mt.Get(m); got != int64(i+1) {
			t.Errorf("%s = %d, want %d", mt.Name, got, i+1)
		}
	}
}

func TestPoints(t *testing.T) {
	tests := []struct {
		name string
		in   model.TaskMetrics
		want int64
	}{
		{"empty", model.TaskMetrics{}, 0},
		{"upwork and clients", model.TaskMetrics{UpworkOutreach: 2, NoOfClients: 1}, 30},
		{"every metric once", model.TaskMetrics{
			UpworkOutreach: 1, SocialMediaPosts: 1, SocialMediaEngagements: 1,
			JobApplications: 1, LocalOutreach: 1, IntlOutreach: 1,
			EcommerceDeliveredOrders: 1, NoOfClients: 1, EarningsInDollars: 1,
		}, 45},
		{"earnings only", model.TaskMetrics{EarningsInDollars: 250}, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Points(tt.in); got != tt.want {
				t.Errorf("Points() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSum(t *testing.T) {
	subs := []model.TaskMetrics{
		{UpworkOutreach: 2, NoOfClients: 1},
		{UpworkOutreach: 3, EarningsInDollars: 10},
	}

	got := Sum(subs)
	if got.UpworkOutreach != 5 || got.NoOfClients != 1 || got.EarningsInDollars != 10 {
		t.Errorf("Sum() = %+v", got)
	}

	if empty := Sum(nil); empty != (model.TaskMetrics{}) {
		t.Errorf("Sum(nil) = %+v, want zero record", empty)
	}
}

func TestLookup(t *testing.T) {
	mt, ok := Lookup("noOfClients")
	if !ok {
		t.Fatal("Lookup(noOfClients) not found")
	}
	if mt.Weight != 20 || mt.Column != "no_of_clients" {
		t.Errorf("Lookup(noOfClients) = %+v", mt)
	}

	if _, ok := Lookup("totalPoints"); ok {
		t.Error("totalPoints is not a metric")
	}
}

func TestFromValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"number", float64(4), 4},
		{"numeric string", "7", 7},
		{"padded string", " 7 ", 7},
		{"fraction truncates", 2.9, 2},
		{"missing", nil, 0},
		{"garbage string", "lots", 0},
		{"bool", true, 0},
		{"negative", float64(-3), 0},
		{"object", map[string]any{"a": 1}, 0},
		{"huge number clamps", 1e30, MaxCount},
		{"huge string clamps", "1e30", MaxCount},
		{"just above the cap", float64(MaxCount + 1), MaxCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FromValues(map[string]any{"upworkOutreach": tt.value})
			if m.UpworkOutreach != tt.want {
				t.Errorf("UpworkOutreach = %d, want %d", m.UpworkOutreach, tt.want)
			}
		})
	}
}

// A submission with every metric at the cap must still score a positive,
// exact total.
func TestPoints_CappedInputDoesNotOverflow(t *testing.T) {
	values := make(map[string]any, len(Schema))
	var weights int64
	for _, mt := range Schema {
		values[mt.Name] = 1e30
		weights += mt.Weight
	}

	m := FromValues(values)
	if m.NoOfClients != MaxCount {
		t.Fatalf("NoOfClients = %d, want %d", m.NoOfClients, MaxCount)
	}
	if got, want := Points(m), MaxCount*weights; got != want {
		t.Errorf("Points() = %d, want %d", got, want)
	}
}

func TestPoints_Saturates(t *testing.T) {
	m := model.TaskMetrics{NoOfClients: math.MaxInt64, UpworkOutreach: math.MaxInt64 / 2}
	if got := Points(m); got != math.MaxInt64 {
		t.Errorf("Points() = %d, want math.MaxInt64", got)
	}

	if got := Points(model.TaskMetrics{NoOfClients: -5, UpworkOutreach: 1}); got != 5 {
		t.Errorf("Points() with a negative field = %d, want 5", got)
	}
}

func TestAdd_Saturates(t *testing.T) {
	a := model.TaskMetrics{EarningsInDollars: math.MaxInt64 - 1}
	b := model.TaskMetrics{EarningsInDollars: 10, JobApplications: 2}

	got := Add(a, b)
	if got.EarningsInDollars != math.MaxInt64 {
		t.Errorf("EarningsInDollars = %d, want math.MaxInt64", got.EarningsInDollars)
	}
	if got.JobApplications != 2 {
		t.Errorf("JobApplications = %d, want 2", got.JobApplications)
	}
}

func TestSaturatingAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
	}{
		{"plain", 2, 3, 5},
		{"at the edge", math.MaxInt64 - 3, 3, math.MaxInt64},
		{"past the edge", math.MaxInt64, 1, math.MaxInt64},
		{"negative operand", 7, -4, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SaturatingAdd(tt.a, tt.b); got != tt.want {
				t.Errorf("SaturatingAdd(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
