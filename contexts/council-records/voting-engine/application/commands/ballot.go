package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "concilium/contexts/council-records/voting-engine/application"
	"concilium/contexts/council-records/voting-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/voting-engine/domain/errors"
	"concilium/contexts/council-records/voting-engine/ports"
)

// CastBallotCommand is the write-model input for ballot casting. Re-casting by
// the same voter on the same resolution replaces the prior ballot.
type CastBallotCommand struct {
	ResolutionID     string
	VoterID          string
	Choice           entities.BallotChoice
	Impeded          bool
	ImpedimentReason string
}

type CastBallotResult struct {
	Ballot    entities.Ballot
	WasUpdate bool
}

// BallotUseCase orchestrates ballot writes: voting-window validation,
// impediment recording, last-write-wins replacement, and event emission.
type BallotUseCase struct {
	Ballots     ports.BallotRepository
	Resolutions ports.ResolutionReader
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Outbox      ports.OutboxWriter
	Logger      *slog.Logger
}

// CastBallot stores or replaces the voter's ballot while the resolution is in
// voting_open status. Impeded ballots are stored for audit with their declared
// reason; their choice is never tallied.
func (uc BallotUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	resolutionID := strings.TrimSpace(cmd.ResolutionID)
	voterID := strings.TrimSpace(cmd.VoterID)
	logger.Info("ballot cast processing started",
		"event", "voting_ballot_cast_started",
		"module", "council-records/voting-engine",
		"layer", "application",
		"resolution_id", resolutionID,
		"voter_id", voterID,
	)

	if resolutionID == "" || voterID == "" {
		return CastBallotResult{}, domainerrors.ErrInvalidBallotInput
	}
	if cmd.Impeded {
		if strings.TrimSpace(cmd.ImpedimentReason) == "" {
			return CastBallotResult{}, domainerrors.ErrImpedimentReasonRequired
		}
	} else if !cmd.Choice.Valid() {
		return CastBallotResult{}, domainerrors.ErrInvalidBallotInput
	}

	resolution, err := uc.Resolutions.GetResolution(ctx, resolutionID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(resolution.Status), "voting_open") {
		logger.Warn("ballot cast rejected, voting closed",
			"event", "voting_ballot_cast_closed",
			"module", "council-records/voting-engine",
			"layer", "application",
			"resolution_id", resolutionID,
			"voter_id", voterID,
			"status", resolution.Status,
		)
		return CastBallotResult{}, domainerrors.ErrVotingClosed
	}

	now := uc.now()
	existing, found, err := uc.Ballots.GetBallotByIdentity(ctx, resolutionID, voterID)
	if err != nil {
		return CastBallotResult{}, err
	}

	ballot := entities.Ballot{
		ResolutionID:     resolutionID,
		VoterID:          voterID,
		Choice:           cmd.Choice,
		Impeded:          cmd.Impeded,
		ImpedimentReason: strings.TrimSpace(cmd.ImpedimentReason),
		CastAt:           now,
		UpdatedAt:        now,
	}
	eventType := "ballot.cast"
	if found {
		// Last write wins; the ballot identity (and id) is stable.
		ballot.BallotID = existing.BallotID
		ballot.CastAt = existing.CastAt
		eventType = "ballot.replaced"
	} else {
		ballotID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return CastBallotResult{}, err
		}
		ballot.BallotID = ballotID
	}

	if err := uc.Ballots.SaveBallot(ctx, ballot); err != nil {
		return CastBallotResult{}, err
	}
	if err := uc.appendBallotEvent(ctx, eventType, ballot, now); err != nil {
		return CastBallotResult{}, err
	}

	logger.Info("ballot stored",
		"event", "voting_ballot_stored",
		"module", "council-records/voting-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"resolution_id", ballot.ResolutionID,
		"voter_id", ballot.VoterID,
		"impeded", ballot.Impeded,
		"replaced", found,
	)
	return CastBallotResult{Ballot: ballot, WasUpdate: found}, nil
}

func (uc BallotUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc BallotUseCase) appendBallotEvent(
	ctx context.Context,
	eventType string,
	ballot entities.Ballot,
	occurredAt time.Time,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newVotingEnvelope(eventID, eventType, ballot.ResolutionID, occurredAt, map[string]any{
		"ballot_id":     ballot.BallotID,
		"resolution_id": ballot.ResolutionID,
		"voter_id":      ballot.VoterID,
		"choice":        string(ballot.Choice),
		"impeded":       ballot.Impeded,
		"occurred_at":   occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
