package models

import "time"

// CandidateTally is one row of the per-candidate results board.
type CandidateTally struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	VoteCount   int    `json:"voteCount"`
}

// Statistics is the aggregate election report.
type Statistics struct {
	TotalVotes        int              `json:"totalVotes"`
	TotalVoters       int              `json:"totalVoters"`
	TotalCandidates   int              `json:"totalCandidates"`
	ParticipationRate string           `json:"participationRate"`
	VotesPerCandidate []CandidateTally `json:"votesPerCandidate"`
	ComputedAt        time.Time        `json:"computedAt"`
}

// Violation describes a broken data invariant found by an integrity scan.
type Violation struct {
	Invariant string `json:"invariant"` // "single-vote" or "tally"
	AccountID string `json:"accountId"`
	Detail    string `json:"detail"`
}
