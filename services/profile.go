package services

import (
	"encoding/json"
	"errors"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/pkg/phone"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const PROFILE_SVC = "profile_svc"

type ProfileRepository interface {
	GetProfile(userID string) (*model.Profile, error)
	SaveProfile(profile *model.Profile) error
	CreateActivityLog(entry *model.ActivityLog) error
	ListActivity(userID string, limit int) ([]model.ActivityLog, error)
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type ProfileService struct {
	appContext.DefaultService

	profiles ProfileRepository
	pgSvc    *PostgresService
}

func NewProfileService(profiles ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (svc ProfileService) Id() string {
	return PROFILE_SVC
}

func (svc *ProfileService) Configure(ctx *appContext.Context) error {
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *ProfileService) Start() error {
	svc.profiles = svc.pgSvc.Profiles()
	return nil
}

// load returns the stored profile or the defaults for a first visit.
func (svc *ProfileService) load(user *dto.AuthUser) (*model.Profile, error) {
	profile, err := svc.profiles.GetProfile(user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Profile{
			UserID:             user.ID,
			Email:              user.Email,
			EmailNotifications: true,
		}, nil
	}
	if err != nil {
		return nil, handleDBError(err)
	}
	if profile.Email == "" {
		profile.Email = user.Email
	}
	return profile, nil
}

func (svc *ProfileService) GetProfile(user *dto.AuthUser) (*dto.ProfileResponse, error) {
	profile, err := svc.load(user)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(profile), nil
}

// UpdateProfile applies the fields present in req. A phone number is stored
// in +1XXXXXXXXXX form; an empty one clears it.
func (svc *ProfileService) UpdateProfile(user *dto.AuthUser, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, shared.NewValidationError(dto.FormatValidationErrors(err))
	}

	profile, err := svc.load(user)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
		changed = append(changed, "full_name")
	}
	if req.Phone != nil {
		raw := strings.TrimSpace(*req.Phone)
		if raw == "" {
			profile.Phone = ""
		} else {
			canonical, ok := phone.Normalize(raw)
			if !ok {
				return nil, shared.NewValidationError([]dto.ValidationError{{
					Field:   "phone",
					Message: "Phone number must have 10 digits",
				}})
			}
			profile.Phone = canonical
		}
		changed = append(changed, "phone")
	}
	if req.EmailNotifications != nil {
		profile.EmailNotifications = *req.EmailNotifications
		changed = append(changed, "email_notifications")
	}
	if req.SMSNotifications != nil {
		profile.SMSNotifications = *req.SMSNotifications
		changed = append(changed, "sms_notifications")
	}

	if profile.SMSNotifications && profile.Phone == "" {
		return nil, shared.NewValidationError([]dto.ValidationError{{
			Field:   "sms_notifications",
			Message: "A phone number is required for SMS notifications",
		}})
	}

	if err := svc.profiles.SaveProfile(profile); err != nil {
		return nil, handleDBError(err)
	}

	if len(changed) > 0 {
		recordActivity(svc.profiles, user.ID, shared.ActivityProfileUpdated, "Updated profile",
			map[string]interface{}{"fields": changed})
	}
	log.WithFields(log.Fields{"user_id": user.ID, "fields": changed}).Info("Profile updated")

	return toProfileResponse(profile), nil
}

// RecentActivity returns the caller's newest activity entries.
func (svc *ProfileService) RecentActivity(user *dto.AuthUser, limit int) (*dto.ActivityListResponse, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	entries, err := svc.profiles.ListActivity(user.ID, limit)
	if err != nil {
		return nil, handleDBError(err)
	}

	resp := &dto.ActivityListResponse{Activity: make([]dto.ActivityResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Activity = append(resp.Activity, dto.ActivityResponse{
			ID:          e.ID,
			Action:      e.Action,
			Description: e.Description,
			Metadata:    json.RawMessage(e.Metadata),
			CreatedAt:   e.CreatedAt,
		})
	}
	resp.Total = len(resp.Activity)
	return resp, nil
}

func toProfileResponse(p *model.Profile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		UserID:             p.UserID,
		FullName:           p.FullName,
		Email:              p.Email,
		Phone:              p.Phone,
		PhoneDisplay:       phone.Display(p.Phone),
		EmailNotifications: p.EmailNotifications,
		SMSNotifications:   p.SMSNotifications,
	}
}
