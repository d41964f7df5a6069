package repositories

import (
	"errors"
	"time"

	"github.com/ezfoia/foia_api/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FoiaRepository struct {
	BaseRepository
}

func NewFoiaRepository(db *gorm.DB) *FoiaRepository {
	return &FoiaRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *FoiaRepository) CreateRequest(req *model.FoiaRequest) (*model.FoiaRequest, error) {
	if req.ID == "" {
		id, _ := uuid.NewV7()
		req.ID = id.String()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.Before(req.CreatedAt) {
		req.UpdatedAt = req.CreatedAt
	}

	if err := r.db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *FoiaRepository) GetRequest(id string) (*model.FoiaRequest, error) {
	var req model.FoiaRequest
	if err := r.db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestByStripeSession returns nil, nil when no request was created for the session.
func (r *FoiaRepository) GetRequestByStripeSession(sessionID string) (*model.FoiaRequest, error) {
	var req model.FoiaRequest
	err := r.db.Where("stripe_session_id = ?", sessionID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *FoiaRepository) ListRequestsByUser(userID string) ([]model.FoiaRequest, error) {
	var reqs []model.FoiaRequest
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// UpdateRequestStatus sets status and bumps updated_at, never earlier than
// created_at. It returns the request as it was before the update.
func (r *FoiaRepository) UpdateRequestStatus(id, status string, at time.Time) (before *model.FoiaRequest, after *model.FoiaRequest, err error) {
	err = r.db.Transaction(func(tx *gorm.DB) error {
		var current model.FoiaRequest
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		previous := current
		before = &previous

		if at.Before(current.CreatedAt) {
			at = current.CreatedAt
		}
		if err := tx.Model(&current).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		}).Error; err != nil {
			return err
		}
		current.Status = status
		current.UpdatedAt = at
		after = &current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (r *FoiaRepository) GetDocument(id string) (*model.FoiaDocument, error) {
	var doc model.FoiaDocument
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *FoiaRepository) CreateDocument(doc *model.FoiaDocument) error {
	if doc.ID == "" {
		id, _ := uuid.NewV7()
		doc.ID = id.String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return r.db.Create(doc).Error
}

func (r *FoiaRepository) SaveDocumentSummary(id, summary string, at time.Time) error {
	return r.db.Model(&model.FoiaDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_summary":              summary,
			"ai_summary_generated_at": at,
		}).Error
}

func (r *FoiaRepository) CountRequestsByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&model.FoiaRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
