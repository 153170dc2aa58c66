// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered challenge participant.
//
// UniqueCode is the public, 6-character identifier a participant types into
// the daily submission form instead of logging in again. It is unique across
// all users and never changes after registration.
//
// WHY PasswordHash HAS json:"-"?
// The struct is returned directly by several endpoints (login, /me, admin user
// list). The "-" tag guarantees the bcrypt hash never leaves the server, even
// if a handler forgets to strip it.
type User struct {
	ID                     string    `json:"id"                     db:"id"`
	UniqueCode             string    `json:"uniqueCode,omitempty"   db:"unique_code"`
	FirstName              string    `json:"firstName"              db:"first_name"`
	LastName               string    `json:"lastName"               db:"last_name"`
	Email                  string    `json:"email"                  db:"email"`
	PasswordHash           string    `json:"-"                      db:"password"`
	LinkedInLink           string    `json:"linkedInLink"           db:"linkedin_link"`
	UpworkLink             string    `json:"upworkLink"             db:"upwork_link"`
	FacebookLink           string    `json:"facebookLink"           db:"facebook_link"`
	TwitterLink            string    `json:"twitterLink"            db:"twitter_link"`
	FunnelLink             string    `json:"funnelLink"             db:"funnel_link"`
	MediumLink             string    `json:"mediumLink"             db:"medium_link"`
	GoHighLevelAccountName string    `json:"goHighLevelAccountName" db:"gohighlevel_account_name"`
	PhoneNumber            string    `json:"phoneNumber"            db:"phone_number"`
	CreatedAt              time.Time `json:"createdAt"              db:"created_at"`
}

// PublicUser hides the unique code. It is what login and /me return: the code
// is shown once at registration and afterwards only via /get-unique-code.
func (u User) PublicUser() User {
	u.UniqueCode = ""
	u.PasswordHash = ""
	return u
}
