package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	documentengine "concilium/contexts/council-records/document-engine"
	documentmemory "concilium/contexts/council-records/document-engine/adapters/memory"
	documentcommands "concilium/contexts/council-records/document-engine/application/commands"
	documentports "concilium/contexts/council-records/document-engine/ports"
	documenthttp "concilium/contexts/council-records/document-engine/transport/http"
	revocationgraph "concilium/contexts/council-records/revocation-graph"
	revocationmemory "concilium/contexts/council-records/revocation-graph/adapters/memory"
	revocationentities "concilium/contexts/council-records/revocation-graph/domain/entities"
	revocationports "concilium/contexts/council-records/revocation-graph/ports"
	revocationhttp "concilium/contexts/council-records/revocation-graph/transport/http"
	votingengine "concilium/contexts/council-records/voting-engine"
	votingmemory "concilium/contexts/council-records/voting-engine/adapters/memory"
	votingentities "concilium/contexts/council-records/voting-engine/domain/entities"
	votingports "concilium/contexts/council-records/voting-engine/ports"
	votinghttp "concilium/contexts/council-records/voting-engine/transport/http"
	"concilium/internal/platform/httpserver"
)

// The cross-module collaborators below mirror the composition root: modules
// never import each other, the seams are plain port adapters.

type staticRoster struct {
	members []string
}

func (r staticRoster) RosterFor(context.Context, string) ([]string, error) {
	return append([]string(nil), r.members...), nil
}

type documentStatusReader struct {
	documents *documentengine.Module
}

func (r documentStatusReader) GetResolution(ctx context.Context, resolutionID string) (votingports.ResolutionProjection, error) {
	document, err := r.documents.Handler.GetDocumentHandler(ctx, resolutionID)
	if err != nil {
		return votingports.ResolutionProjection{}, err
	}
	return votingports.ResolutionProjection{
		ResolutionID: document.DocumentID,
		Status:       document.Status,
	}, nil
}

type voteResultReader struct {
	voting *votingengine.Module
}

func (r voteResultReader) ResultFor(ctx context.Context, resolutionID string) (documentports.VoteResultProjection, error) {
	result, err := r.voting.Tally.ComputeResult(ctx, resolutionID)
	if err != nil {
		return documentports.VoteResultProjection{}, err
	}
	return documentports.VoteResultProjection{
		ResolutionID: result.ResolutionID,
		Outcome:      string(result.Outcome),
		QuorumMet:    result.QuorumMet,
	}, nil
}

type resolutionStatusReader struct {
	documents *documentengine.Module
}

func (r resolutionStatusReader) GetResolution(ctx context.Context, resolutionID string) (revocationports.ResolutionProjection, error) {
	document, err := r.documents.Handler.GetDocumentHandler(ctx, resolutionID)
	if err != nil {
		return revocationports.ResolutionProjection{}, err
	}
	return revocationports.ResolutionProjection{
		ResolutionID: document.DocumentID,
		Status:       document.Status,
	}, nil
}

type snapshotContentReader struct {
	store *documentmemory.Store
}

func (r snapshotContentReader) ArticlesFor(ctx context.Context, resolutionID string) ([]revocationentities.ArticleText, error) {
	document, err := r.store.GetDocument(ctx, resolutionID)
	if err != nil {
		return nil, err
	}
	snapshot, err := r.store.GetSnapshot(ctx, resolutionID, document.CurrentVersion)
	if err != nil {
		return nil, err
	}
	articles := make([]revocationentities.ArticleText, 0, len(snapshot.Content.Articles))
	for _, article := range snapshot.Content.Articles {
		articles = append(articles, revocationentities.ArticleText{
			Number:  article.Number,
			Heading: article.Heading,
			Body:    article.Body,
		})
	}
	return articles, nil
}

type lifecycleRevoker struct {
	documents *documentengine.Module
}

func (r lifecycleRevoker) RevokeResolution(ctx context.Context, resolutionID string, actorID string, reason string) error {
	_, err := r.documents.Lifecycle.RevokeTransition(ctx, documentcommands.RevokeCommand{
		DocumentID: resolutionID,
		ActorID:    actorID,
		Reason:     reason,
	})
	return err
}

func (r lifecycleRevoker) ConfirmRevocation(ctx context.Context, resolutionID string, actorID string) error {
	return r.documents.Lifecycle.RecordRevokeAudit(ctx, resolutionID, actorID)
}

func newTestServer(roster []string) *httpserver.Server {
	documentStore := documentmemory.NewStore(nil)
	votingStore := votingmemory.NewStore(nil)
	revocationStore := revocationmemory.NewStore(nil)

	// Voting reads resolution status through the document module and the
	// document module gates approval on the tally, so both readers hold a
	// pointer and the modules are assigned after construction.
	var documentModule documentengine.Module
	var votingModule votingengine.Module

	votingModule = votingengine.NewModule(votingengine.Dependencies{
		Ballots:     votingStore,
		Resolutions: documentStatusReader{documents: &documentModule},
		Roster:      staticRoster{members: roster},
		Outbox:      votingStore,
		Clock:       votingStore,
		IDGen:       votingStore,
		Policy:      votingentities.QuorumPolicy{},
	})
	documentModule = documentengine.NewModule(documentengine.Dependencies{
		Documents:        documentStore,
		Versions:         documentStore,
		Reviews:          documentStore,
		Publications:     documentStore,
		VoteResults:      voteResultReader{voting: &votingModule},
		Audit:            documentStore,
		Tx:               documentStore,
		Outbox:           documentStore,
		Clock:            documentStore,
		IDGen:            documentStore,
		AuditMaxAttempts: 3,
	})

	revocationModule := revocationgraph.NewModule(revocationgraph.Dependencies{
		Revocations: revocationStore,
		Resolutions: resolutionStatusReader{documents: &documentModule},
		Content:     snapshotContentReader{store: documentStore},
		Lifecycle:   lifecycleRevoker{documents: &documentModule},
		Tx:          revocationStore,
		Outbox:      revocationStore,
		Clock:       revocationStore,
		IDGen:       revocationStore,
	})

	return httpserver.New(documentModule, votingModule, revocationModule, nil, "")
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, actorID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	if actorID != "" {
		request.Header.Set("X-User-Id", actorID)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return value
}

func TestMissingActorHeaderIsUnauthorized(t *testing.T) {
	server := newTestServer(nil)
	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/records/v1/documents", "", documenthttp.CreateDocumentRequest{
		Kind:          "minutes",
		DisplayNumber: "ATA-001/2026",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
}

func TestResolutionLifecycleEndToEnd(t *testing.T) {
	roster := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		roster = append(roster, fmt.Sprintf("member-%d", i))
	}
	server := newTestServer(roster)
	handler := server.Handler()

	// Draft.
	created := doJSON(t, handler, http.MethodPost, "/api/records/v1/documents", "clerk-1", documenthttp.CreateDocumentRequest{
		Kind:          "resolution",
		DisplayNumber: "RES-042/2026",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", created.Code, created.Body.String())
	}
	resolution := decode[documenthttp.DocumentResponse](t, created)
	if resolution.Status != "draft" {
		t.Fatalf("new document status = %s, want draft", resolution.Status)
	}

	// First version opens the vote.
	submitted := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/documents/"+resolution.DocumentID+"/versions", "clerk-1",
		map[string]any{
			"content": map[string]any{
				"articles": []map[string]any{
					{"number": "1", "body": "Parking is restricted on the square."},
					{"number": "2", "body": "Fines double on market days."},
				},
			},
		})
	if submitted.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", submitted.Code, submitted.Body.String())
	}
	version := decode[documenthttp.SubmitVersionResponse](t, submitted)
	if version.Document.Status != "voting_open" || version.Version.VersionNumber != 1 {
		t.Fatalf("unexpected submission result: %+v", version)
	}

	// Seven of ten vote: five in favor, two against.
	for i := 1; i <= 5; i++ {
		recorder := doJSON(t, handler, http.MethodPost,
			"/api/records/v1/resolutions/"+resolution.DocumentID+"/ballots",
			fmt.Sprintf("member-%d", i),
			votinghttp.CastBallotRequest{Choice: "favor"})
		if recorder.Code != http.StatusOK {
			t.Fatalf("ballot status = %d, body %s", recorder.Code, recorder.Body.String())
		}
	}
	for i := 6; i <= 7; i++ {
		recorder := doJSON(t, handler, http.MethodPost,
			"/api/records/v1/resolutions/"+resolution.DocumentID+"/ballots",
			fmt.Sprintf("member-%d", i),
			votinghttp.CastBallotRequest{Choice: "against"})
		if recorder.Code != http.StatusOK {
			t.Fatalf("ballot status = %d, body %s", recorder.Code, recorder.Body.String())
		}
	}

	resultRecorder := doJSON(t, handler, http.MethodGet,
		"/api/records/v1/resolutions/"+resolution.DocumentID+"/result", "president-1", nil)
	if resultRecorder.Code != http.StatusOK {
		t.Fatalf("result status = %d, body %s", resultRecorder.Code, resultRecorder.Body.String())
	}
	result := decode[votinghttp.VoteResultResponse](t, resultRecorder)
	if !result.QuorumMet || result.Outcome != "approved" {
		t.Fatalf("unexpected tally: %+v", result)
	}
	if result.FavorCount != 5 || result.AgainstCount != 2 || result.EligibleCount != 10 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	// Close the vote and publish in the gazette.
	closed := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/documents/"+resolution.DocumentID+"/close-voting", "president-1", nil)
	if closed.Code != http.StatusOK {
		t.Fatalf("close status = %d, body %s", closed.Code, closed.Body.String())
	}
	if status := decode[documenthttp.DocumentResponse](t, closed).Status; status != "approved" {
		t.Fatalf("closed status = %s, want approved", status)
	}

	published := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/documents/"+resolution.DocumentID+"/publications", "clerk-1",
		documenthttp.RecordPublicationRequest{
			Venue:   "official_gazette",
			Page:    "12",
			Edition: "345",
		})
	if published.Code != http.StatusCreated {
		t.Fatalf("publish status = %d, body %s", published.Code, published.Body.String())
	}

	// A later ballot bounces off the closed vote.
	late := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/resolutions/"+resolution.DocumentID+"/ballots", "member-8",
		votinghttp.CastBallotRequest{Choice: "favor"})
	if late.Code != http.StatusUnprocessableEntity {
		t.Fatalf("late ballot status = %d, want 422", late.Code)
	}

	// A second resolution supersedes the first, totally.
	revoker := decode[documenthttp.DocumentResponse](t, doJSON(t, handler, http.MethodPost,
		"/api/records/v1/documents", "clerk-1", documenthttp.CreateDocumentRequest{
			Kind:          "resolution",
			DisplayNumber: "RES-043/2026",
		}))
	doJSON(t, handler, http.MethodPost,
		"/api/records/v1/documents/"+revoker.DocumentID+"/versions", "clerk-1",
		map[string]any{"content": map[string]any{
			"articles": []map[string]any{{"number": "1", "body": "Parking rules are repealed."}},
		}})
	for i := 1; i <= 6; i++ {
		doJSON(t, handler, http.MethodPost,
			"/api/records/v1/resolutions/"+revoker.DocumentID+"/ballots",
			fmt.Sprintf("member-%d", i),
			votinghttp.CastBallotRequest{Choice: "favor"})
	}
	closedRevoker := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/documents/"+revoker.DocumentID+"/close-voting", "president-1", nil)
	if closedRevoker.Code != http.StatusOK {
		t.Fatalf("revoker close status = %d, body %s", closedRevoker.Code, closedRevoker.Body.String())
	}

	revocation := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/resolutions/"+resolution.DocumentID+"/revocations", "president-1",
		revocationhttp.RecordRevocationRequest{
			RevokingResolutionID: revoker.DocumentID,
			Scope:                "total",
			Reason:               "superseded by RES-043/2026",
		})
	if revocation.Code != http.StatusCreated {
		t.Fatalf("revocation status = %d, body %s", revocation.Code, revocation.Body.String())
	}

	finalState := decode[documenthttp.DocumentResponse](t, doJSON(t, handler, http.MethodGet,
		"/api/records/v1/documents/"+resolution.DocumentID, "clerk-1", nil))
	if finalState.Status != "revoked" {
		t.Fatalf("final status = %s, want revoked", finalState.Status)
	}

	again := doJSON(t, handler, http.MethodPost,
		"/api/records/v1/resolutions/"+resolution.DocumentID+"/revocations", "president-1",
		revocationhttp.RecordRevocationRequest{
			RevokingResolutionID: revoker.DocumentID,
			Scope:                "total",
			Reason:               "twice",
		})
	if again.Code != http.StatusConflict {
		t.Fatalf("second total revocation status = %d, want 409", again.Code)
	}

	effective := decode[revocationhttp.EffectiveTextResponse](t, doJSON(t, handler, http.MethodGet,
		"/api/records/v1/documents/"+resolution.DocumentID+"/effective-text", "clerk-1", nil))
	if !effective.TotallyRevoked || len(effective.Articles) != 2 {
		t.Fatalf("unexpected effective text: %+v", effective)
	}

	incoming := decode[[]revocationhttp.RevocationResponse](t, doJSON(t, handler, http.MethodGet,
		"/api/records/v1/documents/"+resolution.DocumentID+"/revocations/incoming", "clerk-1", nil))
	if len(incoming) != 1 || incoming[0].RevokingResolutionID != revoker.DocumentID {
		t.Fatalf("unexpected incoming edges: %+v", incoming)
	}
}
