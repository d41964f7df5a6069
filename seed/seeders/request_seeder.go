package seeders

import (
	"errors"
	"fmt"
	"time"

	"github.com/ezfoia/foia_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RequestSeeder creates one sample request per status for the demo user.
type RequestSeeder struct {
	requests RequestStore
	profiles ProfileStore
	now      func() time.Time
}

func NewRequestSeeder(requests RequestStore, profiles ProfileStore) *RequestSeeder {
	return &RequestSeeder{requests: requests, profiles: profiles, now: time.Now}
}

// SeedRequests skips requests whose ID already exists.
func (s *RequestSeeder) SeedRequests(accounts Accounts) error {
	if accounts.UserID == "" {
		log.Info("No demo user given, skipping request seeding")
		return nil
	}

	if err := s.profiles.SaveProfile(&model.Profile{
		UserID:             accounts.UserID,
		FullName:           "Demo Requester",
		Email:              accounts.UserEmail,
		EmailNotifications: true,
	}); err != nil {
		return fmt.Errorf("save demo profile: %w", err)
	}

	for _, req := range s.sampleRequests(accounts.UserID) {
		_, err := s.requests.GetRequest(req.ID)
		if err == nil {
			log.WithField("request_id", req.ID).Info("Request already exists, skipping")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check request %s: %w", req.ID, err)
		}

		if _, err := s.requests.CreateRequest(req); err != nil {
			return fmt.Errorf("create request %s: %w", req.ID, err)
		}
		log.WithFields(log.Fields{
			"request_id": req.ID,
			"status":     req.Status,
		}).Info("Created sample request")
	}

	log.Info("Request seeding completed")
	return nil
}

// SeedRequestID is the sample request that receives the seeded document.
const SeedRequestID = "seed-request-completed"

func (s *RequestSeeder) sampleRequests(userID string) []*model.FoiaRequest {
	now := s.now().UTC()
	day := 24 * time.Hour

	sample := func(id, agency, agencyType, recordType, description, status string, age, lastUpdate time.Duration) *model.FoiaRequest {
		return &model.FoiaRequest{
			ID:          id,
			UserID:      userID,
			AgencyName:  agency,
			AgencyType:  agencyType,
			RecordType:  recordType,
			Description: description,
			Status:      status,
			CreatedAt:   now.Add(-age),
			UpdatedAt:   now.Add(-lastUpdate),
		}
	}

	return []*model.FoiaRequest{
		sample("seed-request-pending", "Environmental Protection Agency", "federal", "reports",
			"Inspection reports for the Riverside water treatment plant from January 2023 through June 2024.",
			model.StatusPending.String(), 2*day, 2*day),
		sample("seed-request-in-progress", "City of Springfield Police Department", "local", "emails",
			"All emails between the police chief and the city council concerning the 2024 body camera policy.",
			model.StatusInProgress.String(), 21*day, 6*day),
		sample(SeedRequestID, "State Department of Transportation", "state", "contracts",
			"The road resurfacing contract for Route 9 awarded in 2024, including bids from all vendors.",
			model.StatusCompleted.String(), 60*day, 3*day),
		sample("seed-request-rejected", "Federal Bureau of Investigation", "federal", "other",
			"Any files concerning the 1998 county fair incident referenced in local news coverage.",
			model.StatusRejected.String(), 45*day, 10*day),
	}
}
