package seeders

import (
	"context"
	"io"

	"github.com/ezfoia/foia_api/model"
	"github.com/minio/minio-go/v7"
	log "github.com/sirupsen/logrus"
)

type RequestStore interface {
	GetRequest(id string) (*model.FoiaRequest, error)
	CreateRequest(req *model.FoiaRequest) (*model.FoiaRequest, error)
	CountRequestsByStatus() (map[string]int64, error)
	GetDocument(id string) (*model.FoiaDocument, error)
	CreateDocument(doc *model.FoiaDocument) error
}

type ProfileStore interface {
	SaveProfile(profile *model.Profile) error
	GrantRole(userID, role string) error
}

type ObjectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) (*minio.UploadInfo, error)
}

// Accounts names the identities the sample data belongs to. The IDs must
// match the subject of the tokens the auth platform issues for them.
type Accounts struct {
	UserID     string
	UserEmail  string
	AdminID    string
	AdminEmail string
}

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	requests RequestStore
	profiles ProfileStore
	objects  ObjectUploader
	accounts Accounts
}

// NewMainSeeder creates a new main seeder. objects may be nil, in which case
// no documents are seeded.
func NewMainSeeder(requests RequestStore, profiles ProfileStore, objects ObjectUploader, accounts Accounts) *MainSeeder {
	return &MainSeeder{
		requests: requests,
		profiles: profiles,
		objects:  objects,
		accounts: accounts,
	}
}

// SeedAll runs all seeders in the correct order
func (s *MainSeeder) SeedAll(ctx context.Context) error {
	log.Info("Starting database seeding")

	if err := s.SeedAdminOnly(); err != nil {
		return err
	}
	if err := s.SeedRequestsOnly(); err != nil {
		return err
	}
	if err := s.SeedDocumentsOnly(ctx); err != nil {
		return err
	}

	counts, err := s.requests.CountRequestsByStatus()
	if err != nil {
		log.WithError(err).Warn("Could not count seeded requests")
	} else {
		log.WithField("by_status", counts).Info("Database seeding completed")
	}
	return nil
}

func (s *MainSeeder) SeedAdminOnly() error {
	if err := NewAdminSeeder(s.profiles).SeedAdmin(s.accounts); err != nil {
		log.WithError(err).Error("Admin seeding failed")
		return err
	}
	return nil
}

func (s *MainSeeder) SeedRequestsOnly() error {
	if err := NewRequestSeeder(s.requests, s.profiles).SeedRequests(s.accounts); err != nil {
		log.WithError(err).Error("Request seeding failed")
		return err
	}
	return nil
}

func (s *MainSeeder) SeedDocumentsOnly(ctx context.Context) error {
	if s.objects == nil {
		log.Warn("Object storage not configured, skipping document seeding")
		return nil
	}
	if err := NewDocumentSeeder(s.requests, s.objects).SeedDocuments(ctx, s.accounts); err != nil {
		log.WithError(err).Error("Document seeding failed")
		return err
	}
	return nil
}
