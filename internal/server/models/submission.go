package models

import "time"

// Submission is an inbound document submission. It is consumed once and
// never persisted as an entity.
type Submission struct {
	SubmitterIdentity string
	RawUnitKey        string
	OwnerName         string
	Phone             string
	// FileRefs is free text (links, ids) holding candidate object ids.
	FileRefs   string
	ReceivedAt time.Time
}

// Outcome is the visible state of a processed submission.
type Outcome string

const (
	OutcomePendingReview Outcome = "Pending Review"
	OutcomeMismatch      Outcome = "Mismatch"
	OutcomeNoContainer   Outcome = "No Container"
	OutcomeDone          Outcome = "Done"
	OutcomeDropped       Outcome = "Dropped"
	OutcomeError         Outcome = "Error"
)

// HistoricalSubmission is a past submission used to seed ledgers.
type HistoricalSubmission struct {
	RawUnitKey string
	FileRefs   string
}
