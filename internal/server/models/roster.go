package models

import "time"

// RosterRow is the committee-facing member roster line maintained on each
// admitted submission.
type RosterRow struct {
	ID            int64
	NormalizedKey string
	UnitKey       string
	SubmittedAt   time.Time
	Email         string
	OwnerName     string
	Phone         string
	ContainerLink string
	Status        string
	Remarks       string
	Watchlist     string
}

// WatchlistMatch is the flag written to matching roster rows.
const WatchlistMatch = "WATCHLIST MATCH"

// Template is a notification template with {{Field}} placeholders.
type Template struct {
	Key     string
	Subject string
	Body    string
}
