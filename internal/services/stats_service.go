package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcastellr/ballotbox-be/internal/models"
)

// StatsServiceProvider defines the interface for statistics services.
type StatsServiceProvider interface {
	ComputeStatistics(ctx context.Context) (models.Statistics, error)
	CheckIntegrity(ctx context.Context) ([]models.Violation, error)
}

// StatsService computes aggregate election reports from stored accounts and
// votes.
type StatsService struct {
	db *sql.DB
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// ComputeStatistics returns vote/voter/candidate totals, the participation
// rate, and per-candidate tallies sorted by vote count descending with ties
// broken by account creation order. Candidates without votes are included.
func (s *StatsService) ComputeStatistics(ctx context.Context) (models.Statistics, error) {
	stats := models.Statistics{ComputedAt: time.Now().UTC()}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM votes").Scan(&stats.TotalVotes); err != nil {
		return models.Statistics{}, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE role = 'voter'").Scan(&stats.TotalVoters); err != nil {
		return models.Statistics{}, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE role = 'candidate'").Scan(&stats.TotalCandidates); err != nil {
		return models.Statistics{}, err
	}

	if stats.TotalVoters > 0 {
		rate := float64(stats.TotalVotes) / float64(stats.TotalVoters) * 100
		stats.ParticipationRate = fmt.Sprintf("%.2f%%", rate)
	} else {
		stats.ParticipationRate = "0%"
	}

	// Tallies come from the vote records themselves, not the cached
	// vote_count column, so the report stays truthful even if the cache
	// drifts. created_at ASC keeps the tie order stable.
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.party, COUNT(v.id) AS tally
		FROM accounts a
		LEFT JOIN votes v ON v.candidate_id = a.id
		WHERE a.role = 'candidate'
		GROUP BY a.id, a.name, a.party
		ORDER BY tally DESC, a.created_at ASC`)
	if err != nil {
		return models.Statistics{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var tally models.CandidateTally
		if err := rows.Scan(&tally.CandidateID, &tally.Name, &tally.Party, &tally.VoteCount); err != nil {
			return models.Statistics{}, err
		}
		stats.VotesPerCandidate = append(stats.VotesPerCandidate, tally)
	}
	return stats, rows.Err()
}

// CheckIntegrity scans for broken invariants: voters whose has_voted flag
// disagrees with their vote records (or who hold more than one), and
// candidates whose cached tally differs from the actual vote count.
func (s *StatsService) CheckIntegrity(ctx context.Context) ([]models.Violation, error) {
	var violations []models.Violation

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.has_voted, COUNT(v.id) AS recorded
		FROM accounts a
		LEFT JOIN votes v ON v.voter_id = a.id
		WHERE a.role = 'voter'
		GROUP BY a.id, a.has_voted
		HAVING (a.has_voted = 1 AND COUNT(v.id) != 1)
		    OR (a.has_voted = 0 AND COUNT(v.id) != 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			hasVoted bool
			recorded int
		)
		if err := rows.Scan(&id, &hasVoted, &recorded); err != nil {
			return nil, err
		}
		violations = append(violations, models.Violation{
			Invariant: "single-vote",
			AccountID: id,
			Detail:    fmt.Sprintf("has_voted=%t but %d vote record(s) exist", hasVoted, recorded),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT a.id, a.vote_count, COUNT(v.id) AS recorded
		FROM accounts a
		LEFT JOIN votes v ON v.candidate_id = a.id
		WHERE a.role = 'candidate'
		GROUP BY a.id, a.vote_count
		HAVING a.vote_count != COUNT(v.id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			cached   int
			recorded int
		)
		if err := rows.Scan(&id, &cached, &recorded); err != nil {
			return nil, err
		}
		violations = append(violations, models.Violation{
			Invariant: "tally",
			AccountID: id,
			Detail:    fmt.Sprintf("vote_count=%d but %d vote record(s) exist", cached, recorded),
		})
	}
	return violations, rows.Err()
}
