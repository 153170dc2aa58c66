package model

// TaskMetrics holds the per-metric integer counts of one submission, or the
// per-metric sums of many submissions (the "aggregatedTasks" of a
// leaderboard row).
//
// The field set mirrors scoring.Schema; weights, SQL columns and sort keys
// live there, not here.
type TaskMetrics struct {
	UpworkOutreach           int64 `json:"upworkOutreach"`
	SocialMediaPosts         int64 `json:"socialMediaPosts"`
	SocialMediaEngagements   int64 `json:"socialMediaEngagements"`
	JobApplications          int64 `json:"jobApplications"`
	LocalOutreach            int64 `json:"localOutreach"`
	IntlOutreach             int64 `json:"intlOutreach"`
	EcommerceDeliveredOrders int64 `json:"ecommerceDeliveredOrders"`
	NoOfClients              int64 `json:"noOfClients"`
	EarningsInDollars        int64 `json:"earningsInDollars"`
}

// LeaderboardUser is the user projection carried by a leaderboard row.
// UniqueCode is only filled for the admin-facing variant.
type LeaderboardUser struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	UniqueCode string `json:"uniqueCode,omitempty"`
}

// Enrollment is the raw read-model a repository hands to the leaderboard:
// one UserChallenge joined to its user and every daily submission.
type Enrollment struct {
	UserChallengeID string
	User            LeaderboardUser
	TotalPoints     int64
	Submissions     []TaskMetrics
}
