package documentengine_test

import (
	"context"
	"errors"
	"testing"

	documentengine "concilium/contexts/council-records/document-engine"
	"concilium/contexts/council-records/document-engine/application/commands"
	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
	httptransport "concilium/contexts/council-records/document-engine/transport/http"
)

func createDocument(t *testing.T, module documentengine.Module, kind string, displayNumber string) httptransport.DocumentResponse {
	t.Helper()
	document, err := module.Handler.CreateDocumentHandler(context.Background(), "clerk-1", httptransport.CreateDocumentRequest{
		Kind:          kind,
		DisplayNumber: displayNumber,
	})
	if err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	return document
}

func submitVersion(t *testing.T, module documentengine.Module, documentID string, content []byte) httptransport.SubmitVersionResponse {
	t.Helper()
	result, err := module.Handler.SubmitVersionHandler(context.Background(), documentID, "clerk-1", httptransport.SubmitVersionRequest{
		Content: content,
	})
	if err != nil {
		t.Fatalf("submit version failed: %v", err)
	}
	return result
}

func TestCreateDocumentValidation(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)

	if _, err := module.Handler.CreateDocumentHandler(context.Background(), "clerk-1", httptransport.CreateDocumentRequest{
		Kind:          "ordinance",
		DisplayNumber: "001/2026",
	}); !errors.Is(err, domainerrors.ErrInvalidDocumentInput) {
		t.Fatalf("expected ErrInvalidDocumentInput for unknown kind, got %v", err)
	}

	createDocument(t, module, "minutes", "ATA-001/2026")
	if _, err := module.Handler.CreateDocumentHandler(context.Background(), "clerk-2", httptransport.CreateDocumentRequest{
		Kind:          "minutes",
		DisplayNumber: "ATA-001/2026",
	}); !errors.Is(err, domainerrors.ErrDisplayNumberTaken) {
		t.Fatalf("expected ErrDisplayNumberTaken, got %v", err)
	}

	// The same display number under another kind is a distinct sequence.
	if _, err := module.Handler.CreateDocumentHandler(context.Background(), "clerk-2", httptransport.CreateDocumentRequest{
		Kind:          "resolution",
		DisplayNumber: "ATA-001/2026",
	}); err != nil {
		t.Fatalf("cross-kind display number rejected: %v", err)
	}
}

func TestVersionNumbersAreMonotonic(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "minutes", "ATA-002/2026")

	first := submitVersion(t, module, document.DocumentID, []byte(`{
		"agenda_items": [{"order": 1, "title": "Budget review"}],
		"preamble": "Session opened at nine."
	}`))
	if first.Version.VersionNumber != 1 {
		t.Fatalf("first version = %d, want 1", first.Version.VersionNumber)
	}
	if first.Document.Status != "under_review" {
		t.Fatalf("first submission status = %s, want under_review", first.Document.Status)
	}

	second := submitVersion(t, module, document.DocumentID, []byte(`{
		"agenda_items": [{"order": 1, "title": "Budget review"}, {"order": 2, "title": "Road works"}],
		"preamble": "Session opened at nine."
	}`))
	if second.Version.VersionNumber != 2 {
		t.Fatalf("second version = %d, want 2", second.Version.VersionNumber)
	}
	if second.Document.Status != "under_review" {
		t.Fatalf("later submission must not move status, got %s", second.Document.Status)
	}

	versions, err := module.Handler.ListVersionsHandler(context.Background(), document.DocumentID)
	if err != nil {
		t.Fatalf("list versions failed: %v", err)
	}
	if len(versions) != 2 || versions[0].VersionNumber != 1 || versions[1].VersionNumber != 2 {
		t.Fatalf("unexpected version listing: %+v", versions)
	}

	diff, err := module.Handler.DiffVersionsHandler(context.Background(), document.DocumentID, 1, 2)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !diff.AgendaChanged {
		t.Fatalf("expected agenda change to be flagged")
	}
	if diff.TextChanged || diff.ArticlesChanged || diff.AttendanceChanged || diff.DeliberationsChanged {
		t.Fatalf("unexpected diff flags: %+v", diff)
	}

	if _, err := module.Handler.GetVersionHandler(context.Background(), document.DocumentID, 3); !errors.Is(err, domainerrors.ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestMinutesApprovalGatedByPendingReviews(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "minutes", "ATA-003/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"preamble": "draft text"}`))

	comment, err := module.Handler.AddCommentHandler(context.Background(), document.DocumentID, "reviewer-1", httptransport.AddCommentRequest{
		Section: "preamble",
		Body:    "The opening time is missing.",
	})
	if err != nil {
		t.Fatalf("add comment failed: %v", err)
	}

	if _, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1"); !errors.Is(err, domainerrors.ErrPendingReviewsExist) {
		t.Fatalf("expected ErrPendingReviewsExist, got %v", err)
	}

	responded, err := module.Handler.RespondCommentHandler(context.Background(), comment.CommentID, "clerk-1", httptransport.RespondCommentRequest{
		Outcome:      "accepted",
		ResponseText: "Opening time added in the next version.",
	})
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if responded.Status != "accepted" || responded.RespondedBy != "clerk-1" || responded.RespondedAt == "" {
		t.Fatalf("response fields not recorded: %+v", responded)
	}

	if _, err := module.Handler.RespondCommentHandler(context.Background(), comment.CommentID, "clerk-1", httptransport.RespondCommentRequest{
		Outcome:      "rejected",
		ResponseText: "second answer",
	}); !errors.Is(err, domainerrors.ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}

	pending, err := module.Handler.PendingCountHandler(context.Background(), document.DocumentID)
	if err != nil {
		t.Fatalf("pending count failed: %v", err)
	}
	if pending.PendingCount != 0 {
		t.Fatalf("pending count = %d, want 0", pending.PendingCount)
	}

	approved, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != "approved" {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
}

func TestResolutionApprovalGatedByVoteResult(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "resolution", "RES-010/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"articles": [{"number": "1", "body": "It is resolved."}]}`))

	// No computed result yet.
	if _, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1"); !errors.Is(err, domainerrors.ErrVoteResultUnavailable) {
		t.Fatalf("expected ErrVoteResultUnavailable, got %v", err)
	}

	module.Store.SetVoteResult(ports.VoteResultProjection{
		ResolutionID: document.DocumentID,
		Outcome:      "rejected",
		QuorumMet:    true,
	})
	if _, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1"); !errors.Is(err, domainerrors.ErrVoteNotApproved) {
		t.Fatalf("expected ErrVoteNotApproved, got %v", err)
	}

	module.Store.SetVoteResult(ports.VoteResultProjection{
		ResolutionID: document.DocumentID,
		Outcome:      "approved",
		QuorumMet:    true,
	})
	approved, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != "approved" {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
}

func TestCloseVotingOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		outcome    string
		wantStatus string
		wantErr    error
	}{
		{name: "approved result", outcome: "approved", wantStatus: "approved"},
		{name: "rejected result", outcome: "rejected", wantStatus: "rejected"},
		{name: "no quorum blocks closing", outcome: "no_quorum", wantErr: domainerrors.ErrNoQuorum},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			module := documentengine.NewInMemoryModule(nil, nil)
			document := createDocument(t, module, "resolution", "RES-020/2026")
			submitVersion(t, module, document.DocumentID, []byte(`{"articles": [{"number": "1", "body": "text"}]}`))
			module.Store.SetVoteResult(ports.VoteResultProjection{
				ResolutionID: document.DocumentID,
				Outcome:      tc.outcome,
			})

			closed, err := module.Handler.CloseVotingHandler(context.Background(), document.DocumentID, "president-1")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("close voting failed: %v", err)
			}
			if closed.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", closed.Status, tc.wantStatus)
			}

			// Rejected and approved are both settled; voting cannot reopen.
			if _, err := module.Handler.CloseVotingHandler(context.Background(), document.DocumentID, "president-1"); !errors.Is(err, domainerrors.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition on re-close, got %v", err)
			}
		})
	}
}

func TestPublicationRules(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "minutes", "ATA-004/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"preamble": "text"}`))

	gazette := httptransport.RecordPublicationRequest{
		Venue:   "official_gazette",
		Page:    "12",
		Edition: "345",
	}

	// Not approved yet.
	if _, err := module.Handler.RecordPublicationHandler(context.Background(), document.DocumentID, "clerk-1", gazette); !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before approval, got %v", err)
	}

	if _, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	// Gazette records need page and edition.
	if _, err := module.Handler.RecordPublicationHandler(context.Background(), document.DocumentID, "clerk-1", httptransport.RecordPublicationRequest{
		Venue: "official_gazette",
		Page:  "12",
	}); !errors.Is(err, domainerrors.ErrInvalidPublication) {
		t.Fatalf("expected ErrInvalidPublication without edition, got %v", err)
	}

	record, err := module.Handler.RecordPublicationHandler(context.Background(), document.DocumentID, "clerk-1", gazette)
	if err != nil {
		t.Fatalf("record publication failed: %v", err)
	}
	if record.Page != "12" || record.Edition != "345" {
		t.Fatalf("gazette fields not stored: %+v", record)
	}

	published, err := module.Handler.GetDocumentHandler(context.Background(), document.DocumentID)
	if err != nil {
		t.Fatalf("get document failed: %v", err)
	}
	if published.Status != "published" {
		t.Fatalf("status = %s, want published", published.Status)
	}

	// Republication in another venue extends the ledger without a transition.
	if _, err := module.Handler.RecordPublicationHandler(context.Background(), document.DocumentID, "clerk-1", httptransport.RecordPublicationRequest{
		Venue: "official_portal",
		URL:   "https://portal.example.gov/ata-004-2026",
	}); err != nil {
		t.Fatalf("republication failed: %v", err)
	}

	records, err := module.Handler.ListPublicationsHandler(context.Background(), document.DocumentID)
	if err != nil {
		t.Fatalf("list publications failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(records))
	}

	ledger, err := module.Handler.ListLedgerHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("list ledger failed: %v", err)
	}
	if len(ledger) != 2 {
		t.Fatalf("global ledger rows = %d, want 2", len(ledger))
	}
}

func TestVersionSubmissionFrozenAfterApproval(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "minutes", "ATA-005/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"preamble": "text"}`))
	if _, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err := module.Handler.SubmitVersionHandler(context.Background(), document.DocumentID, "clerk-1", httptransport.SubmitVersionRequest{
		Content: []byte(`{"preamble": "amended"}`),
	})
	if !errors.Is(err, domainerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAuditRetryRecoversFromTransientFailures(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "minutes", "ATA-006/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"preamble": "text"}`))

	module.Store.AuditFailures = 2
	if _, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1"); err != nil {
		t.Fatalf("approve with transient audit failures: %v", err)
	}

	entries := module.Store.AuditEntries()
	found := false
	for _, entry := range entries {
		if entry.Action == "approve" && entry.EntityID == document.DocumentID {
			if entry.BeforeState != "under_review" || entry.AfterState != "approved" {
				t.Fatalf("audit states = %s -> %s", entry.BeforeState, entry.AfterState)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("approve audit entry missing, entries: %+v", entries)
	}
}

func TestAuditExhaustionKeepsCommittedState(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "minutes", "ATA-007/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"preamble": "text"}`))

	module.Store.AuditFailures = 3
	_, err := module.Handler.ApproveHandler(context.Background(), document.DocumentID, "president-1")
	if !errors.Is(err, domainerrors.ErrAuditUnavailable) {
		t.Fatalf("expected ErrAuditUnavailable, got %v", err)
	}

	// The transition itself stays committed; only the audit trail lags.
	current, getErr := module.Handler.GetDocumentHandler(context.Background(), document.DocumentID)
	if getErr != nil {
		t.Fatalf("get document failed: %v", getErr)
	}
	if current.Status != "approved" {
		t.Fatalf("status = %s, want approved despite audit exhaustion", current.Status)
	}
}

func TestRevokeOnlyFromPublishedResolution(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "resolution", "RES-030/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"articles": [{"number": "1", "body": "text"}]}`))

	if _, err := module.Lifecycle.Revoke(context.Background(), commands.RevokeCommand{
		DocumentID: document.DocumentID,
		ActorID:    "president-1",
		Reason:     "superseded",
	}); !errors.Is(err, domainerrors.ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}

	module.Store.SetVoteResult(ports.VoteResultProjection{
		ResolutionID: document.DocumentID,
		Outcome:      "approved",
	})
	if _, err := module.Handler.CloseVotingHandler(context.Background(), document.DocumentID, "president-1"); err != nil {
		t.Fatalf("close voting failed: %v", err)
	}
	if _, err := module.Handler.RecordPublicationHandler(context.Background(), document.DocumentID, "clerk-1", httptransport.RecordPublicationRequest{
		Venue: "official_portal",
		URL:   "https://portal.example.gov/res-030-2026",
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	revoked, err := module.Lifecycle.Revoke(context.Background(), commands.RevokeCommand{
		DocumentID: document.DocumentID,
		ActorID:    "president-1",
		Reason:     "superseded",
	})
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if revoked.Status != entities.DocumentStatusRevoked {
		t.Fatalf("status = %s, want revoked", revoked.Status)
	}

	if _, err := module.Lifecycle.Revoke(context.Background(), commands.RevokeCommand{
		DocumentID: document.DocumentID,
		ActorID:    "president-1",
		Reason:     "again",
	}); !errors.Is(err, domainerrors.ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
}

func TestRevokeAuditDeferredUntilConfirmed(t *testing.T) {
	module := documentengine.NewInMemoryModule(nil, nil)
	document := createDocument(t, module, "resolution", "RES-031/2026")
	submitVersion(t, module, document.DocumentID, []byte(`{"articles": [{"number": "1", "body": "text"}]}`))

	module.Store.SetVoteResult(ports.VoteResultProjection{
		ResolutionID: document.DocumentID,
		Outcome:      "approved",
	})
	if _, err := module.Handler.CloseVotingHandler(context.Background(), document.DocumentID, "president-1"); err != nil {
		t.Fatalf("close voting failed: %v", err)
	}
	if _, err := module.Handler.RecordPublicationHandler(context.Background(), document.DocumentID, "clerk-1", httptransport.RecordPublicationRequest{
		Venue: "official_portal",
		URL:   "https://portal.example.gov/res-031-2026",
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	revoked, err := module.Lifecycle.RevokeTransition(context.Background(), commands.RevokeCommand{
		DocumentID: document.DocumentID,
		ActorID:    "president-1",
		Reason:     "superseded",
	})
	if err != nil {
		t.Fatalf("revoke transition failed: %v", err)
	}
	if revoked.Status != entities.DocumentStatusRevoked {
		t.Fatalf("status = %s, want revoked", revoked.Status)
	}
	for _, entry := range module.Store.AuditEntries() {
		if entry.Action == "revoke" {
			t.Fatalf("revoke audit entry appended before confirmation: %+v", entry)
		}
	}

	// An exhausted audit sink reports the lag without touching the
	// already committed status.
	module.Store.AuditFailures = 3
	if err := module.Lifecycle.RecordRevokeAudit(context.Background(), document.DocumentID, "president-1"); !errors.Is(err, domainerrors.ErrAuditUnavailable) {
		t.Fatalf("expected ErrAuditUnavailable, got %v", err)
	}
	current, getErr := module.Handler.GetDocumentHandler(context.Background(), document.DocumentID)
	if getErr != nil {
		t.Fatalf("get document failed: %v", getErr)
	}
	if current.Status != "revoked" {
		t.Fatalf("status = %s, want revoked despite audit exhaustion", current.Status)
	}

	if err := module.Lifecycle.RecordRevokeAudit(context.Background(), document.DocumentID, "president-1"); err != nil {
		t.Fatalf("record revoke audit failed: %v", err)
	}
	found := false
	for _, entry := range module.Store.AuditEntries() {
		if entry.Action == "revoke" && entry.EntityID == document.DocumentID {
			if entry.BeforeState != "published" || entry.AfterState != "revoked" {
				t.Fatalf("audit states = %s -> %s", entry.BeforeState, entry.AfterState)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("revoke audit entry missing after confirmation")
	}
}
