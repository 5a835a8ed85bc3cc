package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "concilium/contexts/council-records/voting-engine/application"
	"concilium/contexts/council-records/voting-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/voting-engine/domain/errors"
	"concilium/contexts/council-records/voting-engine/ports"
)

// TallyUseCase computes vote results from stored ballots and the external
// eligible-voter roster. Results are derived on every call; re-running with
// the same ballots and roster yields the identical result.
type TallyUseCase struct {
	Ballots ports.BallotRepository
	Roster  ports.EligibleVoterRoster
	Policy  entities.QuorumPolicy
	Logger  *slog.Logger
}

func (uc TallyUseCase) ComputeResult(ctx context.Context, resolutionID string) (entities.VoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	resolutionID = strings.TrimSpace(resolutionID)
	if resolutionID == "" {
		return entities.VoteResult{}, domainerrors.ErrInvalidBallotInput
	}

	roster, err := uc.Roster.RosterFor(ctx, resolutionID)
	if err != nil {
		logger.Error("roster lookup failed",
			"event", "voting_roster_lookup_failed",
			"module", "council-records/voting-engine",
			"layer", "application",
			"resolution_id", resolutionID,
			"error", err.Error(),
		)
		return entities.VoteResult{}, fmt.Errorf("%w: %w", domainerrors.ErrRosterUnavailable, err)
	}

	ballots, err := uc.Ballots.ListBallotsByResolution(ctx, resolutionID)
	if err != nil {
		return entities.VoteResult{}, err
	}

	result := entities.Tally(resolutionID, ballots, roster, uc.Policy)
	logger.Info("vote result computed",
		"event", "voting_result_computed",
		"module", "council-records/voting-engine",
		"layer", "application",
		"resolution_id", resolutionID,
		"favor", result.FavorCount,
		"against", result.AgainstCount,
		"abstain", result.AbstainCount,
		"eligible", result.EligibleCount,
		"quorum_met", result.QuorumMet,
		"outcome", string(result.Outcome),
	)
	return result, nil
}
