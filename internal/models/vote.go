package models

import "time"

// Vote records a single ballot: one voter choosing one candidate.
type Vote struct {
	ID          string    `json:"id"`
	VoterID     string    `json:"voterId"`
	CandidateID string    `json:"candidateId"`
	CreatedAt   time.Time `json:"createdAt"`
}
