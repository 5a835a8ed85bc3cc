package revocationgraph_test

import (
	"context"
	"errors"
	"testing"
	"time"

	revocationgraph "concilium/contexts/council-records/revocation-graph"
	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	"concilium/contexts/council-records/revocation-graph/ports"
	httptransport "concilium/contexts/council-records/revocation-graph/transport/http"
)

func seedResolutions(module revocationgraph.Module, statuses map[string]string) {
	for resolutionID, status := range statuses {
		module.Store.SetResolution(ports.ResolutionProjection{
			ResolutionID: resolutionID,
			Status:       status,
		})
	}
}

func TestRecordRevocationValidation(t *testing.T) {
	cases := []struct {
		name    string
		seed    map[string]string
		edges   []entities.Revocation
		target  string
		req     httptransport.RecordRevocationRequest
		wantErr error
	}{
		{
			name:   "missing reason",
			seed:   map[string]string{"res-old": "published", "res-new": "approved"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-new",
				Scope:                "total",
			},
			wantErr: domainerrors.ErrInvalidRevocationInput,
		},
		{
			name:   "total with article list",
			seed:   map[string]string{"res-old": "published", "res-new": "approved"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-new",
				Scope:                "total",
				AffectedArticles:     []string{"1"},
				Reason:               "superseded",
			},
			wantErr: domainerrors.ErrInvalidRevocationInput,
		},
		{
			name:   "self revocation",
			seed:   map[string]string{"res-old": "published"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-old",
				Scope:                "total",
				Reason:               "superseded",
			},
			wantErr: domainerrors.ErrSelfRevocation,
		},
		{
			name:   "self revocation outranks shape errors",
			seed:   map[string]string{"res-old": "published"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-old",
				Scope:                "total",
				AffectedArticles:     []string{"1"},
				Reason:               "superseded",
			},
			wantErr: domainerrors.ErrSelfRevocation,
		},
		{
			name:   "revoker still in draft",
			seed:   map[string]string{"res-old": "published", "res-new": "draft"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-new",
				Scope:                "total",
				Reason:               "superseded",
			},
			wantErr: domainerrors.ErrRevokerNotEligible,
		},
		{
			name:   "partial without articles",
			seed:   map[string]string{"res-old": "published", "res-new": "approved"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-new",
				Scope:                "partial",
				Reason:               "article obsolete",
			},
			wantErr: domainerrors.ErrMissingArticleReferences,
		},
		{
			name:   "partial against unpublished original",
			seed:   map[string]string{"res-old": "approved", "res-new": "approved"},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-new",
				Scope:                "partial",
				AffectedArticles:     []string{"2"},
				Reason:               "article obsolete",
			},
			wantErr: domainerrors.ErrOriginalNotPublished,
		},
		{
			// A total edge already revoked the original, so the partial fails
			// the published-only rule rather than the total-uniqueness one.
			name: "partial against totally revoked original",
			seed: map[string]string{"res-old": "revoked", "res-new": "approved"},
			edges: []entities.Revocation{{
				RevocationID:         "rev-prior",
				OriginalResolutionID: "res-old",
				RevokingResolutionID: "res-x",
				Scope:                entities.RevocationScopeTotal,
				Reason:               "superseded",
			}},
			target: "res-old",
			req: httptransport.RecordRevocationRequest{
				RevokingResolutionID: "res-new",
				Scope:                "partial",
				AffectedArticles:     []string{"2"},
				Reason:               "article obsolete",
			},
			wantErr: domainerrors.ErrOriginalNotPublished,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			module := revocationgraph.NewInMemoryModule(tc.edges, nil)
			seedResolutions(module, tc.seed)
			_, err := module.Handler.RecordRevocationHandler(context.Background(), tc.target, "president-1", tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTotalRevocationTriggersLifecycle(t *testing.T) {
	module := revocationgraph.NewInMemoryModule(nil, nil)
	seedResolutions(module, map[string]string{
		"res-old": "published",
		"res-new": "published",
	})

	edge, err := module.Handler.RecordRevocationHandler(context.Background(), "res-old", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-new",
		Scope:                "total",
		Reason:               "superseded by res-new",
	})
	if err != nil {
		t.Fatalf("total revocation failed: %v", err)
	}
	if edge.Scope != "total" || edge.RevocationID == "" {
		t.Fatalf("unexpected edge: %+v", edge)
	}

	revoked := module.Store.RevokedResolutions()
	if len(revoked) != 1 || revoked[0] != "res-old" {
		t.Fatalf("lifecycle revoker calls = %v, want [res-old]", revoked)
	}

	// One total revocation per original, ever.
	if _, err := module.Handler.RecordRevocationHandler(context.Background(), "res-old", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-new",
		Scope:                "total",
		Reason:               "again",
	}); !errors.Is(err, domainerrors.ErrAlreadyTotallyRevoked) {
		t.Fatalf("expected ErrAlreadyTotallyRevoked, got %v", err)
	}
}

func TestAuditLagKeepsCommittedRevocation(t *testing.T) {
	module := revocationgraph.NewInMemoryModule(nil, nil)
	seedResolutions(module, map[string]string{
		"res-old": "published",
		"res-new": "published",
	})

	auditDown := errors.New("audit sink unavailable")
	module.Store.FailConfirmations(auditDown)

	_, err := module.Handler.RecordRevocationHandler(context.Background(), "res-old", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-new",
		Scope:                "total",
		Reason:               "superseded",
	})
	if !errors.Is(err, auditDown) {
		t.Fatalf("expected the audit error to surface, got %v", err)
	}

	// The edge and the lifecycle transition committed before the trail lagged.
	incoming, listErr := module.Handler.IncomingRevocationsHandler(context.Background(), "res-old")
	if listErr != nil {
		t.Fatalf("incoming failed: %v", listErr)
	}
	if len(incoming) != 1 {
		t.Fatalf("incoming edges = %d, want 1", len(incoming))
	}
	if revoked := module.Store.RevokedResolutions(); len(revoked) != 1 || revoked[0] != "res-old" {
		t.Fatalf("lifecycle revoker calls = %v, want [res-old]", revoked)
	}
	if confirmed := module.Store.ConfirmedRevocations(); len(confirmed) != 1 || confirmed[0] != "res-old" {
		t.Fatalf("confirm calls = %v, want [res-old]", confirmed)
	}

	if _, err := module.Handler.RecordRevocationHandler(context.Background(), "res-old", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-new",
		Scope:                "total",
		Reason:               "again",
	}); !errors.Is(err, domainerrors.ErrAlreadyTotallyRevoked) {
		t.Fatalf("expected ErrAlreadyTotallyRevoked, got %v", err)
	}
}

func TestGraphListsBothDirections(t *testing.T) {
	module := revocationgraph.NewInMemoryModule(nil, nil)
	seedResolutions(module, map[string]string{
		"res-a": "published",
		"res-b": "published",
		"res-c": "published",
	})

	if _, err := module.Handler.RecordRevocationHandler(context.Background(), "res-a", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-c",
		Scope:                "partial",
		AffectedArticles:     []string{"1"},
		Reason:               "article 1 superseded",
	}); err != nil {
		t.Fatalf("first edge failed: %v", err)
	}
	if _, err := module.Handler.RecordRevocationHandler(context.Background(), "res-b", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-c",
		Scope:                "total",
		Reason:               "superseded",
	}); err != nil {
		t.Fatalf("second edge failed: %v", err)
	}

	incoming, err := module.Handler.IncomingRevocationsHandler(context.Background(), "res-a")
	if err != nil {
		t.Fatalf("incoming failed: %v", err)
	}
	if len(incoming) != 1 || incoming[0].RevokingResolutionID != "res-c" {
		t.Fatalf("unexpected incoming edges: %+v", incoming)
	}

	outgoing, err := module.Handler.OutgoingRevocationsHandler(context.Background(), "res-c")
	if err != nil {
		t.Fatalf("outgoing failed: %v", err)
	}
	if len(outgoing) != 2 {
		t.Fatalf("outgoing edges = %d, want 2", len(outgoing))
	}
}

func TestEffectiveTextOverlay(t *testing.T) {
	module := revocationgraph.NewInMemoryModule(nil, nil)
	seedResolutions(module, map[string]string{
		"res-old": "published",
		"res-new": "published",
	})
	module.Store.SetArticles("res-old", []entities.ArticleText{
		{Number: "1", Body: "First rule."},
		{Number: "2", Body: "Second rule."},
		{Number: "3", Body: "Third rule."},
	})

	effectiveDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := module.Handler.RecordRevocationHandler(context.Background(), "res-old", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-new",
		Scope:                "partial",
		AffectedArticles:     []string{"2"},
		Reason:               "second rule replaced",
		EffectiveDate:        effectiveDate.Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("partial revocation failed: %v", err)
	}

	// Before the effective date nothing is revoked.
	before, err := module.Handler.EffectiveTextHandler(context.Background(), "res-old", "2026-02-01T00:00:00Z")
	if err != nil {
		t.Fatalf("effective text before failed: %v", err)
	}
	for _, article := range before.Articles {
		if article.Revoked {
			t.Fatalf("article %s revoked before effective date", article.Number)
		}
	}

	after, err := module.Handler.EffectiveTextHandler(context.Background(), "res-old", "2026-04-01T00:00:00Z")
	if err != nil {
		t.Fatalf("effective text after failed: %v", err)
	}
	if after.TotallyRevoked {
		t.Fatalf("partial revocation must not mark the whole text")
	}
	for _, article := range after.Articles {
		switch article.Number {
		case "2":
			if !article.Revoked || article.RevokedBy != "res-new" {
				t.Fatalf("article 2 overlay wrong: %+v", article)
			}
		default:
			if article.Revoked {
				t.Fatalf("article %s unexpectedly revoked", article.Number)
			}
		}
	}
}

func TestEffectiveTextAfterTotalRevocation(t *testing.T) {
	module := revocationgraph.NewInMemoryModule(nil, nil)
	seedResolutions(module, map[string]string{
		"res-old": "published",
		"res-new": "published",
	})
	module.Store.SetArticles("res-old", []entities.ArticleText{
		{Number: "1", Body: "First rule."},
		{Number: "2", Body: "Second rule."},
	})

	if _, err := module.Handler.RecordRevocationHandler(context.Background(), "res-old", "president-1", httptransport.RecordRevocationRequest{
		RevokingResolutionID: "res-new",
		Scope:                "total",
		Reason:               "superseded",
	}); err != nil {
		t.Fatalf("total revocation failed: %v", err)
	}

	projection, err := module.Handler.EffectiveTextHandler(context.Background(), "res-old", "")
	if err != nil {
		t.Fatalf("effective text failed: %v", err)
	}
	if !projection.TotallyRevoked {
		t.Fatalf("expected totally revoked projection")
	}
	for _, article := range projection.Articles {
		if !article.Revoked || article.RevokedBy != "res-new" {
			t.Fatalf("article overlay wrong after total revocation: %+v", article)
		}
	}
}

func TestEffectiveTextForUnknownResolution(t *testing.T) {
	module := revocationgraph.NewInMemoryModule(nil, nil)
	_, err := module.Handler.EffectiveTextHandler(context.Background(), "res-missing", "")
	if !errors.Is(err, domainerrors.ErrContentUnavailable) {
		t.Fatalf("expected ErrContentUnavailable, got %v", err)
	}
}
