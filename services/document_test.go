package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/shared"
	"gorm.io/gorm"
)

type fakeDocumentStore struct {
	docs     map[string]*model.FoiaDocument
	requests map[string]*model.FoiaRequest
	saved    map[string]string
}

func (f *fakeDocumentStore) GetDocument(id string) (*model.FoiaDocument, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeDocumentStore) GetRequest(id string) (*model.FoiaRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeDocumentStore) SaveDocumentSummary(id, summary string, _ time.Time) error {
	f.saved[id] = summary
	return nil
}

type fakeObjects map[string]struct {
	data        string
	contentType string
}

func (f fakeObjects) Download(_ context.Context, name string) ([]byte, string, error) {
	o, ok := f[name]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return []byte(o.data), o.contentType, nil
}

func newDocumentFixture(gw *fakeCompleter) (*DocumentService, *fakeDocumentStore, *fakeActivity) {
	cached := "Cached summary of the contract."
	extracted := "Contract 2024-17 between the city and Acme Paving for road repairs."
	store := &fakeDocumentStore{
		docs: map[string]*model.FoiaDocument{
			"doc-cached": {ID: "doc-cached", RequestID: "req-1", UserID: "user-alice", AISummary: &cached},
			"doc-text":   {ID: "doc-text", RequestID: "req-1", ExtractedText: &extracted},
			"doc-html":   {ID: "doc-html", RequestID: "req-1", FilePath: "req-1/memo.html"},
			"doc-pdf":    {ID: "doc-pdf", RequestID: "req-1", FilePath: "req-1/scan.pdf", MimeType: "application/pdf"},
			"doc-bob":    {ID: "doc-bob", RequestID: "req-2", UserID: "user-bob"},
		},
		requests: map[string]*model.FoiaRequest{
			"req-1": {ID: "req-1", UserID: "user-alice"},
			"req-2": {ID: "req-2", UserID: "user-bob"},
		},
		saved: map[string]string{},
	}
	objects := fakeObjects{
		"req-1/memo.html": {data: "<html><body><h1>Memo</h1><p>Budget <b>approved</b> on May 2.</p></body></html>", contentType: "text/html; charset=utf-8"},
		"req-1/scan.pdf":  {data: "%PDF-1.7", contentType: "application/pdf"},
	}
	activity := &fakeActivity{}
	return NewDocumentService(store, objects, activity, gw), store, activity
}

func TestAnalyzeSummarizeCached(t *testing.T) {
	gw := &fakeCompleter{configured: true, reply: "fresh"}
	svc, _, _ := newDocumentFixture(gw)

	got, err := svc.Analyze(context.Background(), "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-cached", Action: "summarize"})
	if err != nil {
		t.Fatal(err)
	}
	summary := got.(*dto.SummaryResponse)
	if !summary.Cached || summary.Summary != "Cached summary of the contract." {
		t.Errorf("expected cached summary, got %+v", summary)
	}
	if gw.got != nil {
		t.Error("a cached summary must not call the gateway")
	}
}

func TestAnalyzeSummarizeStoresResult(t *testing.T) {
	gw := &fakeCompleter{configured: true, reply: "  A paving contract.  "}
	svc, store, activity := newDocumentFixture(gw)

	got, err := svc.Analyze(context.Background(), "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-text", Action: "summarize"})
	if err != nil {
		t.Fatal(err)
	}
	summary := got.(*dto.SummaryResponse)
	if summary.Cached || summary.Summary != "A paving contract." {
		t.Errorf("unexpected summary %+v", summary)
	}
	if store.saved["doc-text"] != "A paving contract." {
		t.Error("summary should be persisted")
	}
	if len(activity.entries) != 1 || activity.entries[0].Action != shared.ActivityDocumentSummary {
		t.Errorf("expected a document_summarized log, got %+v", activity.entries)
	}
	if !strings.Contains(gw.got[1].Content, "Acme Paving") {
		t.Error("prompt should carry the document text")
	}
}

func TestAnalyzeSearchConvertsHTML(t *testing.T) {
	gw := &fakeCompleter{configured: true, reply: "It was approved on May 2."}
	svc, _, _ := newDocumentFixture(gw)

	got, err := svc.Analyze(context.Background(), "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-html", Action: "search", Query: "When was the budget approved?"})
	if err != nil {
		t.Fatal(err)
	}
	if got.(*dto.SearchResponse).Answer != "It was approved on May 2." {
		t.Errorf("unexpected answer %+v", got)
	}
	prompt := gw.got[1].Content
	if strings.Contains(prompt, "<p>") || !strings.Contains(prompt, "approved") {
		t.Errorf("HTML should be converted to text, got %q", prompt)
	}
	if !strings.Contains(prompt, "When was the budget approved?") {
		t.Error("prompt should carry the question")
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		req    dto.AnalyzeDocumentRequest
		gw     *fakeCompleter
		status int
	}{
		{"missing", "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-none", Action: "summarize"}, &fakeCompleter{configured: true}, http.StatusNotFound},
		{"other owner", "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-bob", Action: "summarize"}, &fakeCompleter{configured: true}, http.StatusForbidden},
		{"owner via request", "user-bob", dto.AnalyzeDocumentRequest{DocumentID: "doc-text", Action: "summarize"}, &fakeCompleter{configured: true}, http.StatusForbidden},
		{"no text", "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-pdf", Action: "summarize"}, &fakeCompleter{configured: true}, http.StatusUnprocessableEntity},
		{"search without query", "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-text", Action: "search"}, &fakeCompleter{configured: true}, http.StatusBadRequest},
		{"gateway unconfigured", "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-text", Action: "summarize"}, &fakeCompleter{}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		svc, _, _ := newDocumentFixture(tt.gw)
		_, err := svc.Analyze(context.Background(), tt.user, tt.req)
		appErr, ok := shared.GetAppError(err)
		if !ok {
			t.Errorf("%s: expected AppError, got %v", tt.name, err)
			continue
		}
		if appErr.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.status, appErr.StatusCode)
		}
	}
}

func TestAnalyzeNoTextMessage(t *testing.T) {
	svc, _, _ := newDocumentFixture(&fakeCompleter{configured: true})
	_, err := svc.Analyze(context.Background(), "user-alice", dto.AnalyzeDocumentRequest{DocumentID: "doc-pdf", Action: "summarize"})
	appErr, _ := shared.GetAppError(err)
	if appErr == nil || appErr.Message != "Document text is not available for analysis" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 3); got != "hél" {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
	if got := truncateRunes("short", 10); got != "short" {
		t.Errorf("short text should be unchanged, got %q", got)
	}
}
