package documentengine

import (
	"log/slog"
	"time"

	httpadapter "concilium/contexts/council-records/document-engine/adapters/http"
	"concilium/contexts/council-records/document-engine/adapters/memory"
	"concilium/contexts/council-records/document-engine/application/commands"
	"concilium/contexts/council-records/document-engine/application/queries"
	"concilium/contexts/council-records/document-engine/domain/entities"
	"concilium/contexts/council-records/document-engine/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Lifecycle commands.LifecycleUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Documents    ports.DocumentRepository
	Versions     ports.VersionRepository
	Reviews      ports.ReviewRepository
	Publications ports.PublicationRepository
	VoteResults  ports.VoteResultReader
	Audit        ports.AuditLog
	Tx           ports.Transactor
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator

	AuditMaxAttempts int
	AuditBackoff     time.Duration
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	lifecycle := commands.LifecycleUseCase{
		Documents:        deps.Documents,
		Versions:         deps.Versions,
		Reviews:          deps.Reviews,
		Publications:     deps.Publications,
		VoteResults:      deps.VoteResults,
		Audit:            deps.Audit,
		Tx:               deps.Tx,
		Outbox:           deps.Outbox,
		Clock:            deps.Clock,
		IDGen:            deps.IDGen,
		AuditMaxAttempts: deps.AuditMaxAttempts,
		AuditBackoff:     deps.AuditBackoff,
		Logger:           deps.Logger,
	}
	reviews := commands.ReviewUseCase{
		Reviews:   deps.Reviews,
		Documents: deps.Documents,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: lifecycle,
			Reviews:   reviews,
			Versions: queries.VersionQueryUseCase{
				Documents: deps.Documents,
				Versions:  deps.Versions,
				Logger:    deps.Logger,
			},
			ReviewReads: queries.ReviewQueryUseCase{
				Reviews: deps.Reviews,
				Logger:  deps.Logger,
			},
			Publications: queries.PublicationQueryUseCase{
				Publications: deps.Publications,
				Logger:       deps.Logger,
			},
			Logger: deps.Logger,
		},
		Lifecycle: lifecycle,
	}
}

func NewInMemoryModule(seed []entities.Document, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Documents:        store,
		Versions:         store,
		Reviews:          store,
		Publications:     store,
		VoteResults:      store,
		Audit:            store,
		Tx:               store,
		Outbox:           store,
		Clock:            store,
		IDGen:            store,
		AuditMaxAttempts: 3,
		AuditBackoff:     time.Millisecond,
		Logger:           logger,
	})
	module.Store = store
	return module
}
