package services_test

import (
	"context"
	"testing"

	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/jcastellr/ballotbox-be/internal/testutil"
)

func TestComputeStatistics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	voteSvc := services.NewVoteService(db)
	statsSvc := services.NewStatsService(db)
	ctx := context.Background()

	// Candidate X registers before Y so creation order breaks any ties.
	candX := testutil.CreateCandidate(t, db, "Xavier", "x@x.com", "Green")
	candY := testutil.CreateCandidate(t, db, "Yolanda", "y@x.com", "Blue")
	voterA := testutil.CreateVoter(t, db, "Ana", "a@x.com")
	voterB := testutil.CreateVoter(t, db, "Bruno", "b@x.com")
	voterC := testutil.CreateVoter(t, db, "Cleo", "c@x.com")

	for _, cast := range []struct{ voter, candidate string }{
		{voterA.ID, candX.ID},
		{voterB.ID, candX.ID},
		{voterC.ID, candY.ID},
	} {
		if _, err := voteSvc.CastVote(ctx, cast.voter, cast.candidate); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}

	stats, err := statsSvc.ComputeStatistics(ctx)
	if err != nil {
		t.Fatalf("ComputeStatistics failed: %v", err)
	}

	if stats.TotalVotes != 3 {
		t.Errorf("Expected 3 total votes, got %d", stats.TotalVotes)
	}
	if stats.TotalVoters != 3 {
		t.Errorf("Expected 3 voters, got %d", stats.TotalVoters)
	}
	if stats.TotalCandidates != 2 {
		t.Errorf("Expected 2 candidates, got %d", stats.TotalCandidates)
	}
	if stats.ParticipationRate != "100.00%" {
		t.Errorf("Expected participation 100.00%%, got %s", stats.ParticipationRate)
	}

	if len(stats.VotesPerCandidate) != 2 {
		t.Fatalf("Expected 2 tallies, got %d", len(stats.VotesPerCandidate))
	}
	first, second := stats.VotesPerCandidate[0], stats.VotesPerCandidate[1]
	if first.CandidateID != candX.ID || first.VoteCount != 2 {
		t.Errorf("Expected %s with 2 votes first, got %s with %d", candX.ID, first.CandidateID, first.VoteCount)
	}
	if second.CandidateID != candY.ID || second.VoteCount != 1 {
		t.Errorf("Expected %s with 1 vote second, got %s with %d", candY.ID, second.CandidateID, second.VoteCount)
	}
	if first.Party != "Green" || second.Party != "Blue" {
		t.Errorf("Party fields wrong: %q, %q", first.Party, second.Party)
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	statsSvc := services.NewStatsService(db)

	stats, err := statsSvc.ComputeStatistics(context.Background())
	if err != nil {
		t.Fatalf("ComputeStatistics failed: %v", err)
	}
	if stats.ParticipationRate != "0%" {
		t.Errorf("Expected 0%% with no voters, got %s", stats.ParticipationRate)
	}
	if stats.TotalVotes != 0 || stats.TotalVoters != 0 || stats.TotalCandidates != 0 {
		t.Errorf("Expected zero totals, got %+v", stats)
	}
}

func TestComputeStatisticsTieOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	statsSvc := services.NewStatsService(db)

	// Both candidates sit at zero votes; the earlier registration wins the
	// tie.
	first := testutil.CreateCandidate(t, db, "Xavier", "x@x.com", "Green")
	second := testutil.CreateCandidate(t, db, "Yolanda", "y@x.com", "Blue")

	stats, err := statsSvc.ComputeStatistics(context.Background())
	if err != nil {
		t.Fatalf("ComputeStatistics failed: %v", err)
	}
	if len(stats.VotesPerCandidate) != 2 {
		t.Fatalf("Expected 2 tallies, got %d", len(stats.VotesPerCandidate))
	}
	if stats.VotesPerCandidate[0].CandidateID != first.ID {
		t.Errorf("Tie not broken by creation order: got %s first", stats.VotesPerCandidate[0].CandidateID)
	}
	if stats.VotesPerCandidate[1].CandidateID != second.ID {
		t.Errorf("Tie not broken by creation order: got %s second", stats.VotesPerCandidate[1].CandidateID)
	}
}

func TestCheckIntegrity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	voteSvc := services.NewVoteService(db)
	statsSvc := services.NewStatsService(db)
	ctx := context.Background()

	voter := testutil.CreateVoter(t, db, "Vera", "v@x.com")
	candidate := testutil.CreateCandidate(t, db, "Carla", "c@x.com", "Green")

	if _, err := voteSvc.CastVote(ctx, voter.ID, candidate.ID); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	violations, err := statsSvc.CheckIntegrity(ctx)
	if err != nil {
		t.Fatalf("CheckIntegrity failed: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("Expected clean store, got %+v", violations)
	}

	// Corrupt both invariants and expect the scan to find each.
	if _, err := db.Exec("UPDATE accounts SET has_voted = 0 WHERE id = ?", voter.ID); err != nil {
		t.Fatalf("Failed to corrupt flag: %v", err)
	}
	if _, err := db.Exec("UPDATE accounts SET vote_count = 5 WHERE id = ?", candidate.ID); err != nil {
		t.Fatalf("Failed to corrupt tally: %v", err)
	}

	violations, err = statsSvc.CheckIntegrity(ctx)
	if err != nil {
		t.Fatalf("CheckIntegrity failed: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("Expected 2 violations, got %d: %+v", len(violations), violations)
	}

	found := map[string]bool{}
	for _, v := range violations {
		found[v.Invariant] = true
	}
	if !found["single-vote"] || !found["tally"] {
		t.Errorf("Expected both invariant kinds flagged, got %+v", violations)
	}
}
