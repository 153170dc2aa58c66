// Package service contains the business rules of the tracker.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)      → decodes requests, writes JSON, maps errors to status codes
//	Service (rules)     → validates, checks the admin key, orchestrates
//	Repository (data)   → SQL, transactions, uniqueness
//
// Three services live here, one per concern:
//   - SubmissionService → the daily task submission (points, day boundary)
//   - ChallengeService  → monthly challenges: create, close, list, expire
//   - AccountService    → registration, login, unique codes, admin user tools
//
// Every service takes repository interfaces, never a concrete store, so the
// tests in this package run against in-memory fakes.
package service

import "time"

// dayLayout formats the calendar day that keys the one-submission-per-day
// rule.
const dayLayout = "2006-01-02"

// Day returns t's calendar day in loc.
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}
