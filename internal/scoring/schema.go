// Package scoring is the single source of truth for the daily task metrics:
// which metrics exist, what each one is worth, and how to read or write it on
// a model.TaskMetrics.
//
// Everything else derives from Schema:
//   - the submission recorder computes points with Points
//   - the SQL repositories build their column lists from Metric.Column
//   - the leaderboard looks up sort keys with Lookup
//
// Adding a metric means adding a field to model.TaskMetrics and one entry
// here. Nothing else repeats the list.
package scoring

import (
	"math"

	"github.com/sakif/challenge-tracker/internal/model"
)

// Metric describes one submittable daily metric.
type Metric struct {
	Name   string // JSON key and sortBy value, e.g. "upworkOutreach"
	Column string // SQL column, e.g. "upwork_outreach"
	Weight int64  // points per unit

	// Field returns a pointer to the metric's field so callers can read and
	// write through one accessor.
	Field func(m *model.TaskMetrics) *int64
}

// Get reads the metric's value.
func (mt Metric) Get(m model.TaskMetrics) int64 {
	return *mt.Field(&m)
}

// Schema lists every metric in display order.
var Schema = []Metric{
	{"upworkOutreach", "upwork_outreach", 5, func(m *model.TaskMetrics) *int64 { return &m.UpworkOutreach }},
	{"socialMediaPosts", "social_media_posts", 3, func(m *model.TaskMetrics) *int64 { return &m.SocialMediaPosts }},
	{"socialMediaEngagements", "social_media_engagements", 1, func(m *model.TaskMetrics) *int64 { return &m.SocialMediaEngagements }},
	{"jobApplications", "job_applications", 5, func(m *model.TaskMetrics) *int64 { return &m.JobApplications }},
	{"localOutreach", "local_outreach", 2, func(m *model.TaskMetrics) *int64 { return &m.LocalOutreach }},
	{"intlOutreach", "intl_outreach", 3, func(m *model.TaskMetrics) *int64 { return &m.IntlOutreach }},
	{"ecommerceDeliveredOrders", "ecommerce_delivered_orders", 5, func(m *model.TaskMetrics) *int64 { return &m.EcommerceDeliveredOrders }},
	{"noOfClients", "no_of_clients", 20, func(m *model.TaskMetrics) *int64 { return &m.NoOfClients }},
	{"earningsInDollars", "earnings_in_dollars", 1, func(m *model.TaskMetrics) *int64 { return &m.EarningsInDollars }},
}

var byName = func() map[string]Metric {
	idx := make(map[string]Metric, len(Schema))
	for _, mt := range Schema {
		idx[mt.Name] = mt
	}
	return idx
}()

// Lookup finds a metric by its JSON name.
func Lookup(name string) (Metric, bool) {
	mt, ok := byName[name]
	return mt, ok
}

// Weights returns a copy of the name → weight table.
func Weights() map[string]int64 {
	w := make(map[string]int64, len(Schema))
	for _, mt := range Schema {
		w[mt.Name] = mt.Weight
	}
	return w
}

// Points computes Σ value × weight over every metric. Negative values count
// as zero and the total saturates at math.MaxInt64, so points never go down.
func Points(m model.TaskMetrics) int64 {
	var total int64
	for _, mt := range Schema {
		total = SaturatingAdd(total, saturatingMul(mt.Get(m), mt.Weight))
	}
	return total
}

// Add returns the field-wise sum of a and b, saturating per field.
func Add(a, b model.TaskMetrics) model.TaskMetrics {
	for _, mt := range Schema {
		f := mt.Field(&a)
		*f = SaturatingAdd(*f, mt.Get(b))
	}
	return a
}

// SaturatingAdd adds two non-negative counts, clamping at math.MaxInt64.
// Negative operands count as zero.
func SaturatingAdd(a, b int64) int64 {
	a, b = max(a, 0), max(b, 0)
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func saturatingMul(v, weight int64) int64 {
	if v <= 0 || weight <= 0 {
		return 0
	}
	if v > math.MaxInt64/weight {
		return math.MaxInt64
	}
	return v * weight
}

// Sum folds a list of submissions into one aggregated record. An empty list
// yields the all-zero record.
func Sum(subs []model.TaskMetrics) model.TaskMetrics {
	var total model.TaskMetrics
	for _, s := range subs {
		total = Add(total, s)
	}
	return total
}
