package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/pkg/llm"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DOCUMENT_SVC = "document_svc"

// maxDocumentChars bounds the text sent to the gateway.
const maxDocumentChars = 30000

const documentSystemPrompt = "You help members of the public understand government records released under " +
	"the Freedom of Information Act. Base every statement on the document text you are given."

var errNoDocumentText = errors.New("document has no extractable text")

type DocumentStore interface {
	GetDocument(id string) (*model.FoiaDocument, error)
	GetRequest(id string) (*model.FoiaRequest, error)
	SaveDocumentSummary(id, summary string, at time.Time) error
}

type ObjectFetcher interface {
	Download(ctx context.Context, objectName string) ([]byte, string, error)
}

// DocumentService summarizes and answers questions about released documents.
type DocumentService struct {
	appContext.DefaultService

	documents DocumentStore
	objects   ObjectFetcher
	activity  ActivityRecorder
	gateway   Completer
	now       func() time.Time

	pgSvc *PostgresService
}

func NewDocumentService(documents DocumentStore, objects ObjectFetcher, activity ActivityRecorder, gateway Completer) *DocumentService {
	return &DocumentService{
		documents: documents,
		objects:   objects,
		activity:  activity,
		gateway:   gateway,
		now:       time.Now,
	}
}

func (svc DocumentService) Id() string {
	return DOCUMENT_SVC
}

func (svc *DocumentService) Configure(ctx *appContext.Context) error {
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.objects = ctx.Service(MINIO_SVC).(*MinIOService)
	svc.gateway = newGatewayClient()
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

func (svc *DocumentService) Start() error {
	svc.documents = svc.pgSvc.Requests()
	svc.activity = svc.pgSvc.Profiles()
	return nil
}

// Analyze runs the requested action on a document the caller owns. The
// result is a *dto.SummaryResponse or a *dto.SearchResponse.
func (svc *DocumentService) Analyze(ctx context.Context, userID string, req dto.AnalyzeDocumentRequest) (interface{}, error) {
	doc, err := svc.ownedDocument(userID, req.DocumentID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case dto.AnalyzeActionSummarize:
		return svc.summarize(ctx, userID, doc)
	case dto.AnalyzeActionSearch:
		if strings.TrimSpace(req.Query) == "" {
			return nil, shared.NewValidationError([]dto.ValidationError{{Field: "query", Message: "query is required"}})
		}
		return svc.search(ctx, doc, req.Query)
	default:
		return nil, shared.NewBadRequestError(nil, "Invalid action")
	}
}

func (svc *DocumentService) ownedDocument(userID, documentID string) (*model.FoiaDocument, error) {
	doc, err := svc.documents.GetDocument(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Document not found")
		}
		return nil, handleDBError(err)
	}

	if doc.UserID != "" && doc.UserID == userID {
		return doc, nil
	}

	req, err := svc.documents.GetRequest(doc.RequestID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, handleDBError(err)
	}
	if req == nil || req.UserID != userID {
		log.WithFields(log.Fields{
			"document_id": documentID,
			"user_id":     userID,
		}).Warn("Document access denied")
		return nil, shared.NewForbiddenError(nil, "Access denied")
	}
	return doc, nil
}

func (svc *DocumentService) summarize(ctx context.Context, userID string, doc *model.FoiaDocument) (*dto.SummaryResponse, error) {
	if doc.AISummary != nil && strings.TrimSpace(*doc.AISummary) != "" {
		return &dto.SummaryResponse{Summary: *doc.AISummary, Cached: true}, nil
	}

	text, err := svc.documentText(ctx, doc)
	if err != nil {
		return nil, err
	}

	prompt := "Summarize the following document in plain language. Cover what it is, who produced it, " +
		"the key facts and dates, and anything that appears redacted or withheld.\n\nDOCUMENT\n" + text

	summary, err := svc.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := svc.documents.SaveDocumentSummary(doc.ID, summary, svc.now().UTC()); err != nil {
		log.WithError(err).WithField("document_id", doc.ID).Error("Failed to store document summary")
	}
	recordActivity(svc.activity, userID, shared.ActivityDocumentSummary, "Summarized a released document",
		map[string]interface{}{"document_id": doc.ID, "request_id": doc.RequestID})

	return &dto.SummaryResponse{Summary: summary, Cached: false}, nil
}

func (svc *DocumentService) search(ctx context.Context, doc *model.FoiaDocument, query string) (*dto.SearchResponse, error) {
	text, err := svc.documentText(ctx, doc)
	if err != nil {
		return nil, err
	}

	prompt := "Answer the question using only the document below. Quote the relevant passage when you can. " +
		"If the document does not answer the question, say so.\n\nQUESTION\n" + strings.TrimSpace(query) +
		"\n\nDOCUMENT\n" + text

	answer, err := svc.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &dto.SearchResponse{Answer: answer}, nil
}

func (svc *DocumentService) ask(ctx context.Context, prompt string) (string, error) {
	if svc.gateway == nil || !svc.gateway.Configured() {
		return "", gatewayError(llm.ErrNotConfigured, "Failed to analyze document")
	}

	resp, err := svc.gateway.Complete(ctx, []llm.Message{
		{Role: "system", Content: documentSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", gatewayError(err, "Failed to analyze document")
	}
	return strings.TrimSpace(resp.Content), nil
}

// documentText returns the stored extraction, or the object's text when it
// is a text type. HTML is converted to markdown.
func (svc *DocumentService) documentText(ctx context.Context, doc *model.FoiaDocument) (string, error) {
	if doc.ExtractedText != nil && strings.TrimSpace(*doc.ExtractedText) != "" {
		return truncateRunes(*doc.ExtractedText, maxDocumentChars), nil
	}

	text, err := svc.downloadText(ctx, doc)
	if err != nil {
		if errors.Is(err, errNoDocumentText) {
			return "", shared.NewUnprocessableError(err, "Document text is not available for analysis")
		}
		log.WithError(err).WithField("document_id", doc.ID).Error("Failed to load document")
		return "", shared.NewInternalError(err, "Failed to load document")
	}
	return truncateRunes(text, maxDocumentChars), nil
}

func (svc *DocumentService) downloadText(ctx context.Context, doc *model.FoiaDocument) (string, error) {
	if doc.FilePath == "" || svc.objects == nil {
		return "", errNoDocumentText
	}

	data, contentType, err := svc.objects.Download(ctx, doc.FilePath)
	if err != nil {
		return "", err
	}
	if doc.MimeType != "" {
		contentType = doc.MimeType
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "text/html":
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		return nonEmptyText(md)
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/json":
		if !utf8.Valid(data) {
			return "", errNoDocumentText
		}
		return nonEmptyText(string(data))
	default:
		return "", errNoDocumentText
	}
}

func nonEmptyText(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", errNoDocumentText
	}
	return s, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
