// Package bootstrap is the composition root. Cross-module collaboration
// (vote results gating approval, total revocations driving the lifecycle)
// is wired here through the modules' ports so context code never imports
// across module boundaries.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	documentengine "concilium/contexts/council-records/document-engine"
	documentpostgres "concilium/contexts/council-records/document-engine/adapters/postgres"
	documentcommands "concilium/contexts/council-records/document-engine/application/commands"
	documentworkers "concilium/contexts/council-records/document-engine/application/workers"
	documentports "concilium/contexts/council-records/document-engine/ports"
	revocationgraph "concilium/contexts/council-records/revocation-graph"
	revocationpostgres "concilium/contexts/council-records/revocation-graph/adapters/postgres"
	revocationworkers "concilium/contexts/council-records/revocation-graph/application/workers"
	revocationports "concilium/contexts/council-records/revocation-graph/ports"
	votingengine "concilium/contexts/council-records/voting-engine"
	votingpostgres "concilium/contexts/council-records/voting-engine/adapters/postgres"
	votingqueries "concilium/contexts/council-records/voting-engine/application/queries"
	votingworkers "concilium/contexts/council-records/voting-engine/application/workers"
	votingentities "concilium/contexts/council-records/voting-engine/domain/entities"
	votingports "concilium/contexts/council-records/voting-engine/ports"
	"concilium/internal/platform/config"
	"concilium/internal/platform/db"
	"concilium/internal/platform/httpserver"
	"concilium/internal/platform/messaging"
	"concilium/internal/shared/events"
)

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres        *db.Postgres
	documentRelay   documentworkers.OutboxRelay
	votingRelay     votingworkers.OutboxRelay
	revocationRelay revocationworkers.OutboxRelay
	pollInterval    time.Duration
	logger          *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	documentRepo := documentpostgres.NewRepository(pg.DB, logger)
	votingRepo := votingpostgres.NewRepository(pg.DB, logger)
	revocationRepo := revocationpostgres.NewRepository(pg.DB, logger)

	votingModule := votingengine.NewModule(votingengine.Dependencies{
		Ballots:     votingRepo,
		Resolutions: votingRepo,
		Roster:      staticRoster{members: cfg.CouncilRoster},
		Outbox:      votingRepo,
		Clock:       votingpostgres.SystemClock{},
		IDGen:       votingpostgres.UUIDGenerator{},
		Policy:      votingentities.QuorumPolicy{ExtraVotes: cfg.QuorumExtraVotes},
		Logger:      logger,
	})

	documentModule := documentengine.NewModule(documentengine.Dependencies{
		Documents:        documentRepo,
		Versions:         documentRepo,
		Reviews:          documentRepo,
		Publications:     documentRepo,
		VoteResults:      voteResultReader{tally: votingModule.Tally},
		Audit:            documentRepo,
		Tx:               documentRepo,
		Outbox:           documentRepo,
		Clock:            documentpostgres.SystemClock{},
		IDGen:            documentpostgres.UUIDGenerator{},
		AuditMaxAttempts: cfg.AuditMaxAttempts,
		AuditBackoff:     cfg.AuditRetryBackoff,
		Logger:           logger,
	})

	revocationModule := revocationgraph.NewModule(revocationgraph.Dependencies{
		Revocations: revocationRepo,
		Resolutions: revocationRepo,
		Content:     revocationRepo,
		Lifecycle:   lifecycleRevoker{lifecycle: documentModule.Lifecycle},
		Tx:          revocationRepo,
		Outbox:      revocationRepo,
		Clock:       revocationpostgres.SystemClock{},
		IDGen:       revocationpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	server := httpserver.New(documentModule, votingModule, revocationModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if !cfg.EnableOutboxRelay {
		return nil, errors.New("worker process requires ENABLE_OUTBOX_RELAY")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(logger)
	documentRepo := documentpostgres.NewRepository(pg.DB, logger)
	votingRepo := votingpostgres.NewRepository(pg.DB, logger)
	revocationRepo := revocationpostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		documentRelay: documentworkers.OutboxRelay{
			Outbox:    documentRepo,
			Publisher: documentEventPublisher{bus: bus},
			Clock:     documentpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		votingRelay: votingworkers.OutboxRelay{
			Outbox:    votingRepo,
			Publisher: votingEventPublisher{bus: bus},
			Clock:     votingpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		revocationRelay: revocationworkers.OutboxRelay{
			Outbox:    revocationRepo,
			Publisher: revocationEventPublisher{bus: bus},
			Clock:     revocationpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.documentRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.votingRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.revocationRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// staticRoster serves the deployment-injected membership list for every
// resolution. A term-of-office service replaces this adapter when one exists.
type staticRoster struct {
	members []string
}

func (r staticRoster) RosterFor(_ context.Context, _ string) ([]string, error) {
	return append([]string(nil), r.members...), nil
}

// voteResultReader bridges the document engine's approval gate to the voting
// module's tally computation.
type voteResultReader struct {
	tally votingqueries.TallyUseCase
}

func (r voteResultReader) ResultFor(ctx context.Context, resolutionID string) (documentports.VoteResultProjection, error) {
	result, err := r.tally.ComputeResult(ctx, resolutionID)
	if err != nil {
		return documentports.VoteResultProjection{}, err
	}
	return documentports.VoteResultProjection{
		ResolutionID: result.ResolutionID,
		Outcome:      string(result.Outcome),
		QuorumMet:    result.QuorumMet,
	}, nil
}

// lifecycleRevoker bridges total revocations to the document engine's revoke
// transition. The transactional context recorded by the revocation module
// carries through so both writes commit together; the audit trail is appended
// separately once the revocation module reports the commit.
type lifecycleRevoker struct {
	lifecycle documentcommands.LifecycleUseCase
}

func (l lifecycleRevoker) RevokeResolution(ctx context.Context, resolutionID string, actorID string, reason string) error {
	_, err := l.lifecycle.RevokeTransition(ctx, documentcommands.RevokeCommand{
		DocumentID: resolutionID,
		ActorID:    actorID,
		Reason:     reason,
	})
	return err
}

func (l lifecycleRevoker) ConfirmRevocation(ctx context.Context, resolutionID string, actorID string) error {
	return l.lifecycle.RecordRevokeAudit(ctx, resolutionID, actorID)
}

type documentEventPublisher struct {
	bus *messaging.Bus
}

func (p documentEventPublisher) Publish(ctx context.Context, topic string, event documentports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, sharedEnvelope(
		event.EventID, event.EventType, event.SourceService, event.TraceID,
		"document", event.PartitionKey, event.SchemaVersion, event.OccurredAt, event.Data,
	))
}

type votingEventPublisher struct {
	bus *messaging.Bus
}

func (p votingEventPublisher) Publish(ctx context.Context, topic string, event votingports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, sharedEnvelope(
		event.EventID, event.EventType, event.SourceService, event.TraceID,
		"ballot", event.PartitionKey, event.SchemaVersion, event.OccurredAt, event.Data,
	))
}

type revocationEventPublisher struct {
	bus *messaging.Bus
}

func (p revocationEventPublisher) Publish(ctx context.Context, topic string, event revocationports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, sharedEnvelope(
		event.EventID, event.EventType, event.SourceService, event.TraceID,
		"revocation", event.PartitionKey, event.SchemaVersion, event.OccurredAt, event.Data,
	))
}

func sharedEnvelope(
	eventID string,
	eventType string,
	sourceService string,
	correlationID string,
	entityType string,
	entityID string,
	payloadVersion int,
	occurredAt time.Time,
	payload json.RawMessage,
) events.Envelope {
	return events.Envelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  sourceService,
		OccurredAtUTC:  occurredAt.UTC(),
		CorrelationID:  correlationID,
		EntityType:     entityType,
		EntityID:       entityID,
		PayloadVersion: payloadVersion,
		Payload:        payload,
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
