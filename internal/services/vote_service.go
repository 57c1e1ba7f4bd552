package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jcastellr/ballotbox-be/internal/models"
	"github.com/rs/zerolog/log"
)

// VoteServiceProvider defines the interface for vote services.
type VoteServiceProvider interface {
	CastVote(ctx context.Context, voterID, candidateID string) (models.Vote, error)
	RevertVote(ctx context.Context, voteID string) error
	GetVote(ctx context.Context, id string) (models.Vote, error)
	ListVotes(ctx context.Context) ([]models.Vote, error)
}

// VoteService enforces the voting integrity rules: one vote per voter and a
// candidate tally that always matches the stored vote records.
type VoteService struct {
	db *sql.DB

	// Per-voter locks. The check-then-write sequence of CastVote must be
	// serialized for a given voter; casts by different voters run in parallel.
	mu         sync.Mutex
	voterLocks map[string]*sync.Mutex
}

// NewVoteService creates a new VoteService.
func NewVoteService(db *sql.DB) *VoteService {
	return &VoteService{
		db:         db,
		voterLocks: make(map[string]*sync.Mutex),
	}
}

// lockVoter returns the mutex guarding cast operations for one voter,
// creating it on first use. Locks are never removed; the voter population is
// bounded and each entry is a single mutex.
func (s *VoteService) lockVoter(voterID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.voterLocks[voterID]
	if !ok {
		l = &sync.Mutex{}
		s.voterLocks[voterID] = l
	}
	return l
}

// CastVote records a vote from voterID for candidateID. Preconditions are
// checked in order: both accounts exist, the voter holds the voter role, the
// candidate holds the candidate role, and the voter has not voted before. The
// effect is all-or-nothing: the vote row, the voter's has_voted flag, and the
// candidate's tally change together or not at all.
func (s *VoteService) CastVote(ctx context.Context, voterID, candidateID string) (models.Vote, error) {
	if voterID == "" || candidateID == "" {
		return models.Vote{}, fmt.Errorf("%w: voter and candidate are required", ErrValidation)
	}

	lock := s.lockVoter(voterID)
	lock.Lock()
	defer lock.Unlock()

	voter, err := s.loadAccountState(ctx, voterID)
	if err == sql.ErrNoRows {
		return models.Vote{}, fmt.Errorf("%w: voter %s", ErrNotFound, voterID)
	}
	if err != nil {
		return models.Vote{}, err
	}

	candidate, err := s.loadAccountState(ctx, candidateID)
	if err == sql.ErrNoRows {
		return models.Vote{}, fmt.Errorf("%w: candidate %s", ErrNotFound, candidateID)
	}
	if err != nil {
		return models.Vote{}, err
	}

	switch voter.Role {
	case models.RoleVoter:
		// ok
	case models.RoleCandidate, models.RoleAdmin:
		return models.Vote{}, fmt.Errorf("%w: only voters may cast votes", ErrInvalidRole)
	default:
		return models.Vote{}, fmt.Errorf("%w: only voters may cast votes", ErrInvalidRole)
	}

	switch candidate.Role {
	case models.RoleCandidate:
		// ok
	case models.RoleVoter, models.RoleAdmin:
		return models.Vote{}, fmt.Errorf("%w: votes can only go to candidates", ErrInvalidRole)
	default:
		return models.Vote{}, fmt.Errorf("%w: votes can only go to candidates", ErrInvalidRole)
	}

	if voter.HasVoted {
		return models.Vote{}, fmt.Errorf("%w: voter %s has already cast a vote", ErrAlreadyVoted, voterID)
	}

	// A vote row without the has_voted flag means the store is inconsistent.
	// Surface it instead of treating it like a plain duplicate.
	var staleVote bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM votes WHERE voter_id = ?)", voterID).Scan(&staleVote); err != nil {
		return models.Vote{}, err
	}
	if staleVote {
		log.Error().Str("voter_id", voterID).Msg("Vote record exists but has_voted flag is unset")
		return models.Vote{}, fmt.Errorf("%w: vote record exists for voter %s but has_voted is false", ErrConsistency, voterID)
	}

	now := time.Now().UTC()
	vote := models.Vote{
		ID:          uuid.New().String(),
		VoterID:     voterID,
		CandidateID: candidateID,
		CreatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO votes (id, voter_id, candidate_id, created_at) VALUES (?, ?, ?, ?)",
		vote.ID, vote.VoterID, vote.CandidateID, vote.CreatedAt); err != nil {
		return models.Vote{}, err
	}

	// Conditional flip guards against a cast that slipped past the lock, e.g.
	// a second process sharing the database file.
	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET has_voted = 1, updated_at = ? WHERE id = ? AND has_voted = 0", now, voterID)
	if err != nil {
		return models.Vote{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Vote{}, err
	}
	if affected == 0 {
		return models.Vote{}, fmt.Errorf("%w: voter %s has already cast a vote", ErrAlreadyVoted, voterID)
	}

	// Tally increment happens in SQL so concurrent casts for the same
	// candidate never lose updates.
	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET vote_count = vote_count + 1, updated_at = ? WHERE id = ?", now, candidateID); err != nil {
		return models.Vote{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Vote{}, err
	}

	log.Info().Str("vote_id", vote.ID).Str("voter_id", voterID).Str("candidate_id", candidateID).Msg("Vote cast")
	return vote, nil
}

// RevertVote administratively deletes a vote and rolls back its effects: the
// voter may vote again and the candidate's tally drops by one. A tally
// already at zero is reported as a consistency violation; the reversal still
// completes and the tally stays at zero rather than underflowing.
func (s *VoteService) RevertVote(ctx context.Context, voteID string) error {
	vote, err := s.GetVote(ctx, voteID)
	if err != nil {
		return err
	}

	lock := s.lockVoter(vote.VoterID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM votes WHERE id = ?", voteID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Deleted between the lookup and the transaction.
		return fmt.Errorf("%w: vote %s", ErrNotFound, voteID)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET has_voted = 0, updated_at = ? WHERE id = ?", now, vote.VoterID); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE accounts SET vote_count = vote_count - 1, updated_at = ? WHERE id = ? AND vote_count > 0", now, vote.CandidateID)
	if err != nil {
		return err
	}
	decremented, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if decremented == 0 {
		log.Error().Str("vote_id", voteID).Str("candidate_id", vote.CandidateID).
			Msg("Reverted a vote for a candidate whose tally was already zero")
		return fmt.Errorf("%w: candidate %s tally was already zero", ErrConsistency, vote.CandidateID)
	}

	log.Info().Str("vote_id", voteID).Str("voter_id", vote.VoterID).Str("candidate_id", vote.CandidateID).Msg("Vote reverted")
	return nil
}

// GetVote retrieves a single vote by its ID.
func (s *VoteService) GetVote(ctx context.Context, id string) (models.Vote, error) {
	var vote models.Vote
	row := s.db.QueryRowContext(ctx,
		"SELECT id, voter_id, candidate_id, created_at FROM votes WHERE id = ?", id)
	err := row.Scan(&vote.ID, &vote.VoterID, &vote.CandidateID, &vote.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Vote{}, fmt.Errorf("%w: vote %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Vote{}, err
	}
	return vote, nil
}

// ListVotes retrieves all recorded votes, oldest first.
func (s *VoteService) ListVotes(ctx context.Context) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, voter_id, candidate_id, created_at FROM votes ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var vote models.Vote
		if err := rows.Scan(&vote.ID, &vote.VoterID, &vote.CandidateID, &vote.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

// loadAccountState fetches just the fields the cast path needs.
func (s *VoteService) loadAccountState(ctx context.Context, id string) (models.Account, error) {
	var (
		account models.Account
		role    string
	)
	row := s.db.QueryRowContext(ctx, "SELECT id, role, has_voted, vote_count FROM accounts WHERE id = ?", id)
	if err := row.Scan(&account.ID, &role, &account.HasVoted, &account.VoteCount); err != nil {
		return models.Account{}, err
	}
	account.Role = models.Role(role)
	return account, nil
}
