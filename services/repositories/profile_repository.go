package repositories

import (
	"errors"
	"time"

	"github.com/ezfoia/foia_api/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	BaseRepository
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *ProfileRepository) GetProfile(userID string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) SaveProfile(profile *model.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "email", "phone", "email_notifications", "sms_notifications", "updated_at",
		}),
	}).Create(profile).Error
}

func (r *ProfileRepository) HasRole(userID, role string) (bool, error) {
	var userRole model.UserRole
	err := r.db.Where("user_id = ? AND role = ?", userID, role).First(&userRole).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProfileRepository) GrantRole(userID, role string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: userID, Role: role}).Error
}

func (r *ProfileRepository) CreateActivityLog(entry *model.ActivityLog) error {
	if entry.ID == "" {
		id, _ := uuid.NewV7()
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.Create(entry).Error
}

func (r *ProfileRepository) ListActivity(userID string, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
