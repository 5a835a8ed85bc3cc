package httpadapter

import (
	"context"
	"log/slog"

	"concilium/contexts/council-records/voting-engine/application/commands"
	"concilium/contexts/council-records/voting-engine/application/queries"
	"concilium/contexts/council-records/voting-engine/domain/entities"
	httptransport "concilium/contexts/council-records/voting-engine/transport/http"
)

type Handler struct {
	Ballots commands.BallotUseCase
	Tally   queries.TallyUseCase
	Logger  *slog.Logger
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	resolutionID string,
	voterID string,
	req httptransport.CastBallotRequest,
) (httptransport.BallotResponse, error) {
	result, err := h.Ballots.CastBallot(ctx, commands.CastBallotCommand{
		ResolutionID:     resolutionID,
		VoterID:          voterID,
		Choice:           entities.BallotChoice(req.Choice),
		Impeded:          req.Impeded,
		ImpedimentReason: req.ImpedimentReason,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		BallotID:         result.Ballot.BallotID,
		ResolutionID:     result.Ballot.ResolutionID,
		VoterID:          result.Ballot.VoterID,
		Choice:           string(result.Ballot.Choice),
		Impeded:          result.Ballot.Impeded,
		ImpedimentReason: result.Ballot.ImpedimentReason,
		Replaced:         result.WasUpdate,
	}, nil
}

func (h Handler) VoteResultHandler(ctx context.Context, resolutionID string) (httptransport.VoteResultResponse, error) {
	result, err := h.Tally.ComputeResult(ctx, resolutionID)
	if err != nil {
		return httptransport.VoteResultResponse{}, err
	}
	return httptransport.VoteResultResponse{
		ResolutionID:  result.ResolutionID,
		FavorCount:    result.FavorCount,
		AgainstCount:  result.AgainstCount,
		AbstainCount:  result.AbstainCount,
		ImpededCount:  result.ImpededCount,
		EligibleCount: result.EligibleCount,
		QuorumMet:     result.QuorumMet,
		Outcome:       string(result.Outcome),
	}, nil
}
