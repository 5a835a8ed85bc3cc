package votingengine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	votingengine "concilium/contexts/council-records/voting-engine"
	"concilium/contexts/council-records/voting-engine/application/workers"
	"concilium/contexts/council-records/voting-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/voting-engine/domain/errors"
	"concilium/contexts/council-records/voting-engine/ports"
	httptransport "concilium/contexts/council-records/voting-engine/transport/http"
)

func openResolution(module votingengine.Module, resolutionID string, roster []string) {
	module.Store.SetResolution(ports.ResolutionProjection{
		ResolutionID: resolutionID,
		Status:       "voting_open",
	})
	module.Store.SetRoster(resolutionID, roster)
}

func TestCastBallotLastWriteWins(t *testing.T) {
	module := votingengine.NewInMemoryModule(nil, entities.QuorumPolicy{}, nil)
	openResolution(module, "res-1", []string{"member-1", "member-2"})

	first, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Choice: "favor",
	})
	if err != nil {
		t.Fatalf("first ballot failed: %v", err)
	}
	if first.Replaced {
		t.Fatalf("first ballot must not be a replacement")
	}

	second, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Choice: "against",
	})
	if err != nil {
		t.Fatalf("replacement ballot failed: %v", err)
	}
	if !second.Replaced {
		t.Fatalf("expected replacement ballot")
	}
	if first.BallotID != second.BallotID {
		t.Fatalf("ballot identity changed on replacement: %s vs %s", first.BallotID, second.BallotID)
	}

	result, err := module.Handler.VoteResultHandler(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("vote result failed: %v", err)
	}
	if result.FavorCount != 0 || result.AgainstCount != 1 {
		t.Fatalf("expected last ballot to count, got favor=%d against=%d", result.FavorCount, result.AgainstCount)
	}
}

func TestCastBallotRejectedWhenVotingClosed(t *testing.T) {
	module := votingengine.NewInMemoryModule(nil, entities.QuorumPolicy{}, nil)
	module.Store.SetResolution(ports.ResolutionProjection{
		ResolutionID: "res-1",
		Status:       "approved",
	})

	_, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Choice: "favor",
	})
	if !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed, got %v", err)
	}
}

func TestImpededBallotRequiresReason(t *testing.T) {
	module := votingengine.NewInMemoryModule(nil, entities.QuorumPolicy{}, nil)
	openResolution(module, "res-1", []string{"member-1"})

	_, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Impeded: true,
	})
	if !errors.Is(err, domainerrors.ErrImpedimentReasonRequired) {
		t.Fatalf("expected ErrImpedimentReasonRequired, got %v", err)
	}

	ballot, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Impeded:          true,
		ImpedimentReason: "family business before the council",
	})
	if err != nil {
		t.Fatalf("impeded ballot failed: %v", err)
	}
	if !ballot.Impeded {
		t.Fatalf("expected impeded ballot")
	}
}

func TestTallyQuorumAndOutcome(t *testing.T) {
	roster := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		roster = append(roster, fmt.Sprintf("member-%d", i))
	}

	ballot := func(voterID string, choice entities.BallotChoice, impeded bool) entities.Ballot {
		return entities.Ballot{
			BallotID:     "ballot-" + voterID,
			ResolutionID: "res-1",
			VoterID:      voterID,
			Choice:       choice,
			Impeded:      impeded,
		}
	}

	cases := []struct {
		name        string
		ballots     []entities.Ballot
		wantQuorum  bool
		wantOutcome entities.VoteOutcome
	}{
		{
			name: "five of ten is below quorum",
			ballots: []entities.Ballot{
				ballot("member-1", entities.BallotChoiceFavor, false),
				ballot("member-2", entities.BallotChoiceFavor, false),
				ballot("member-3", entities.BallotChoiceFavor, false),
				ballot("member-4", entities.BallotChoiceAgainst, false),
				ballot("member-5", entities.BallotChoiceAbstain, false),
			},
			wantQuorum:  false,
			wantOutcome: entities.VoteOutcomeNoQuorum,
		},
		{
			name: "six of ten meets quorum",
			ballots: []entities.Ballot{
				ballot("member-1", entities.BallotChoiceFavor, false),
				ballot("member-2", entities.BallotChoiceFavor, false),
				ballot("member-3", entities.BallotChoiceFavor, false),
				ballot("member-4", entities.BallotChoiceFavor, false),
				ballot("member-5", entities.BallotChoiceAgainst, false),
				ballot("member-6", entities.BallotChoiceAbstain, false),
			},
			wantQuorum:  true,
			wantOutcome: entities.VoteOutcomeApproved,
		},
		{
			name: "tie is rejected",
			ballots: []entities.Ballot{
				ballot("member-1", entities.BallotChoiceFavor, false),
				ballot("member-2", entities.BallotChoiceFavor, false),
				ballot("member-3", entities.BallotChoiceFavor, false),
				ballot("member-4", entities.BallotChoiceAgainst, false),
				ballot("member-5", entities.BallotChoiceAgainst, false),
				ballot("member-6", entities.BallotChoiceAgainst, false),
			},
			wantQuorum:  true,
			wantOutcome: entities.VoteOutcomeRejected,
		},
		{
			name: "impeded members shrink the eligible base",
			ballots: []entities.Ballot{
				ballot("member-1", "", true),
				ballot("member-2", "", true),
				ballot("member-3", "", true),
				ballot("member-4", "", true),
				ballot("member-5", entities.BallotChoiceFavor, false),
				ballot("member-6", entities.BallotChoiceFavor, false),
				ballot("member-7", entities.BallotChoiceFavor, false),
				ballot("member-8", entities.BallotChoiceAgainst, false),
			},
			wantQuorum:  true,
			wantOutcome: entities.VoteOutcomeApproved,
		},
		{
			name: "non-roster ballots are ignored",
			ballots: []entities.Ballot{
				ballot("member-1", entities.BallotChoiceFavor, false),
				ballot("stranger-1", entities.BallotChoiceFavor, false),
				ballot("stranger-2", entities.BallotChoiceFavor, false),
			},
			wantQuorum:  false,
			wantOutcome: entities.VoteOutcomeNoQuorum,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := entities.Tally("res-1", tc.ballots, roster, entities.QuorumPolicy{})
			if result.QuorumMet != tc.wantQuorum {
				t.Fatalf("quorum = %v, want %v", result.QuorumMet, tc.wantQuorum)
			}
			if result.Outcome != tc.wantOutcome {
				t.Fatalf("outcome = %s, want %s", result.Outcome, tc.wantOutcome)
			}

			again := entities.Tally("res-1", tc.ballots, roster, entities.QuorumPolicy{})
			if again != result {
				t.Fatalf("tally is not deterministic: %+v vs %+v", again, result)
			}
		})
	}
}

func TestTallyExtraVotesRaisesThreshold(t *testing.T) {
	policy := entities.QuorumPolicy{ExtraVotes: 2}
	if got := policy.Threshold(10); got != 8 {
		t.Fatalf("threshold = %d, want 8", got)
	}
	if got := (entities.QuorumPolicy{}).Threshold(0); got != 1 {
		t.Fatalf("empty roster threshold = %d, want 1", got)
	}
}

func TestTallyOddEligibleRoundsThresholdUp(t *testing.T) {
	// ceil(9/2)+1, not 9/2+1.
	if got := (entities.QuorumPolicy{}).Threshold(9); got != 6 {
		t.Fatalf("threshold for 9 eligible = %d, want 6", got)
	}

	roster := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		roster = append(roster, fmt.Sprintf("member-%d", i))
	}
	ballots := make([]entities.Ballot, 0, 6)
	for i := 1; i <= 5; i++ {
		ballots = append(ballots, entities.Ballot{
			BallotID:     fmt.Sprintf("ballot-%d", i),
			ResolutionID: "res-odd",
			VoterID:      fmt.Sprintf("member-%d", i),
			Choice:       entities.BallotChoiceFavor,
		})
	}

	result := entities.Tally("res-odd", ballots, roster, entities.QuorumPolicy{})
	if result.QuorumMet || result.Outcome != entities.VoteOutcomeNoQuorum {
		t.Fatalf("five of nine: quorum = %v, outcome = %s, want no quorum", result.QuorumMet, result.Outcome)
	}

	ballots = append(ballots, entities.Ballot{
		BallotID:     "ballot-6",
		ResolutionID: "res-odd",
		VoterID:      "member-6",
		Choice:       entities.BallotChoiceAgainst,
	})
	result = entities.Tally("res-odd", ballots, roster, entities.QuorumPolicy{})
	if !result.QuorumMet || result.Outcome != entities.VoteOutcomeApproved {
		t.Fatalf("six of nine: quorum = %v, outcome = %s, want approved", result.QuorumMet, result.Outcome)
	}
}

func TestVoteResultForUnknownResolution(t *testing.T) {
	module := votingengine.NewInMemoryModule(nil, entities.QuorumPolicy{}, nil)
	_, err := module.Handler.VoteResultHandler(context.Background(), "res-missing")
	if !errors.Is(err, domainerrors.ErrResolutionNotFound) {
		t.Fatalf("expected ErrResolutionNotFound, got %v", err)
	}
}

type capturePublisher struct {
	topics []string
	fail   bool
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.fail {
		return errors.New("bus unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func TestOutboxRelayPublishesPendingEvents(t *testing.T) {
	module := votingengine.NewInMemoryModule(nil, entities.QuorumPolicy{}, nil)
	openResolution(module, "res-1", []string{"member-1", "member-2"})

	if _, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Choice: "favor",
	}); err != nil {
		t.Fatalf("cast ballot failed: %v", err)
	}
	if _, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Choice: "against",
	}); err != nil {
		t.Fatalf("replace ballot failed: %v", err)
	}

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.topics) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.topics))
	}

	// A second cycle finds nothing pending.
	publisher.topics = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.topics) != 0 {
		t.Fatalf("expected no republished events, got %d", len(publisher.topics))
	}
}

func TestOutboxRelayStopsOnPublishFailure(t *testing.T) {
	module := votingengine.NewInMemoryModule(nil, entities.QuorumPolicy{}, nil)
	openResolution(module, "res-1", []string{"member-1"})

	if _, err := module.Handler.CastBallotHandler(context.Background(), "res-1", "member-1", httptransport.CastBallotRequest{
		Choice: "favor",
	}); err != nil {
		t.Fatalf("cast ballot failed: %v", err)
	}

	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: &capturePublisher{fail: true},
	}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	pending, err := module.Store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed event must stay pending, got %d rows", len(pending))
	}
}
