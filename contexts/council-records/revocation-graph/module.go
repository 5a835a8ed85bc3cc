package revocationgraph

import (
	"log/slog"

	httpadapter "concilium/contexts/council-records/revocation-graph/adapters/http"
	"concilium/contexts/council-records/revocation-graph/adapters/memory"
	"concilium/contexts/council-records/revocation-graph/application/commands"
	"concilium/contexts/council-records/revocation-graph/application/queries"
	"concilium/contexts/council-records/revocation-graph/domain/entities"
	"concilium/contexts/council-records/revocation-graph/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Revocations ports.RevocationRepository
	Resolutions ports.ResolutionReader
	Content     ports.ResolutionContentReader
	Lifecycle   ports.LifecycleRevoker
	Tx          ports.Transactor
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Revocations: commands.RevocationUseCase{
				Revocations: deps.Revocations,
				Resolutions: deps.Resolutions,
				Lifecycle:   deps.Lifecycle,
				Tx:          deps.Tx,
				Outbox:      deps.Outbox,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Graph: queries.GraphQueryUseCase{
				Revocations: deps.Revocations,
				Logger:      deps.Logger,
			},
			EffectiveText: queries.EffectiveTextUseCase{
				Revocations: deps.Revocations,
				Content:     deps.Content,
				Clock:       deps.Clock,
				Logger:      deps.Logger,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Revocation, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Revocations: store,
		Resolutions: store,
		Content:     store,
		Lifecycle:   store,
		Tx:          store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
