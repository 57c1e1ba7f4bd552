package models

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles. Every switch over a Role must
// handle all three values.
type Role string

const (
	RoleVoter     Role = "voter"
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role string against the closed set. An empty string
// defaults to voter, matching the registration behavior.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleVoter, nil
	case RoleVoter:
		return RoleVoter, nil
	case RoleCandidate:
		return RoleCandidate, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// DefaultParty is the sentinel party for candidates registered without one.
const DefaultParty = "Independent"

// Account represents a user account in the system. HasVoted is meaningful
// only for voters; Party and VoteCount only for candidates.
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose this to the client
	Role         Role       `json:"role"`
	HasVoted     bool       `json:"hasVoted"`
	Party        string     `json:"party,omitempty"`
	VoteCount    int        `json:"voteCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
}
