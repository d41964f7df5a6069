package seeders

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ezfoia/foia_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	SeedDocumentID   = "seed-document-contract"
	seedDocumentPath = SeedRequestID + "/route-9-contract.html"
)

const seedDocumentHTML = `<html><body>
<h1>Contract 2024-117: Route 9 Resurfacing</h1>
<p>Awarded by the State Department of Transportation on <b>March 4, 2024</b> to Acme Paving LLC.</p>
<h2>Bids received</h2>
<ul>
<li>Acme Paving LLC: $4,210,000</li>
<li>Northern Roads Inc.: $4,480,500</li>
<li>[REDACTED under exemption 4]</li>
</ul>
<p>Work is scheduled from April 15 to October 31, 2024.</p>
</body></html>`

// DocumentSeeder uploads a released document for the completed sample request.
type DocumentSeeder struct {
	documents RequestStore
	objects   ObjectUploader
}

func NewDocumentSeeder(documents RequestStore, objects ObjectUploader) *DocumentSeeder {
	return &DocumentSeeder{documents: documents, objects: objects}
}

func (s *DocumentSeeder) SeedDocuments(ctx context.Context, accounts Accounts) error {
	if accounts.UserID == "" {
		return nil
	}

	_, err := s.documents.GetDocument(SeedDocumentID)
	if err == nil {
		log.WithField("document_id", SeedDocumentID).Info("Document already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check document: %w", err)
	}

	body := []byte(seedDocumentHTML)
	if _, err := s.objects.UploadFile(ctx, seedDocumentPath, bytes.NewReader(body), int64(len(body)), "text/html"); err != nil {
		return err
	}

	if err := s.documents.CreateDocument(&model.FoiaDocument{
		ID:        SeedDocumentID,
		RequestID: SeedRequestID,
		UserID:    accounts.UserID,
		FilePath:  seedDocumentPath,
		MimeType:  "text/html",
	}); err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	log.WithField("document_id", SeedDocumentID).Info("Created sample document")
	return nil
}
