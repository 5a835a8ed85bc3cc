package votingengine

import (
	"log/slog"

	httpadapter "concilium/contexts/council-records/voting-engine/adapters/http"
	"concilium/contexts/council-records/voting-engine/adapters/memory"
	"concilium/contexts/council-records/voting-engine/application/commands"
	"concilium/contexts/council-records/voting-engine/application/queries"
	"concilium/contexts/council-records/voting-engine/domain/entities"
	"concilium/contexts/council-records/voting-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Tally   queries.TallyUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Ballots     ports.BallotRepository
	Resolutions ports.ResolutionReader
	Roster      ports.EligibleVoterRoster
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Policy      entities.QuorumPolicy
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ballotUseCase := commands.BallotUseCase{
		Ballots:     deps.Ballots,
		Resolutions: deps.Resolutions,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Outbox:      deps.Outbox,
		Logger:      deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Ballots: deps.Ballots,
		Roster:  deps.Roster,
		Policy:  deps.Policy,
		Logger:  deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Ballots: ballotUseCase,
			Tally:   tallyUseCase,
			Logger:  deps.Logger,
		},
		Tally: tallyUseCase,
	}
}

func NewInMemoryModule(seed []entities.Ballot, policy entities.QuorumPolicy, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ballots:     store,
		Resolutions: store,
		Roster:      store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		Policy:      policy,
		Logger:      logger,
	})
	module.Store = store
	return module
}
