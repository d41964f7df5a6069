package model

import (
	"time"

	"gorm.io/datatypes"
)

type FoiaRequest struct {
	ID              string    `json:"id" gorm:"primaryKey;type:text;not null"`
	UserID          string    `json:"user_id" gorm:"not null;index;type:text"`
	AgencyName      string    `json:"agency_name" gorm:"not null;size:200"`
	AgencyType      string    `json:"agency_type" gorm:"not null;size:50"`
	RecordType      string    `json:"record_type" gorm:"not null;size:100"`
	Description     string    `json:"description" gorm:"type:text;not null"`
	Status          string    `json:"status" gorm:"not null;size:32;default:pending;index"`
	StripeSessionID *string   `json:"-" gorm:"uniqueIndex;size:255"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`
}

func (FoiaRequest) TableName() string {
	return "foia_requests"
}

type FoiaDocument struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:text;not null"`
	RequestID            string     `json:"request_id" gorm:"not null;index;type:text"`
	UserID               string     `json:"user_id" gorm:"index;type:text"`
	FilePath             string     `json:"file_path" gorm:"not null"`
	MimeType             string     `json:"mime_type" gorm:"size:100"`
	AISummary            *string    `json:"ai_summary" gorm:"type:text"`
	AISummaryGeneratedAt *time.Time `json:"ai_summary_generated_at"`
	ExtractedText        *string    `json:"-" gorm:"type:text"`
	CreatedAt            time.Time  `json:"created_at" gorm:"not null"`
}

func (FoiaDocument) TableName() string {
	return "foia_documents"
}

type Profile struct {
	UserID             string    `json:"user_id" gorm:"primaryKey;type:text;not null"`
	FullName           string    `json:"full_name" gorm:"size:200"`
	Email              string    `json:"email" gorm:"size:255;index"`
	Phone              string    `json:"phone" gorm:"size:16"`
	EmailNotifications bool      `json:"email_notifications" gorm:"default:true;not null"`
	SMSNotifications   bool      `json:"sms_notifications" gorm:"default:false;not null"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

type ActivityLog struct {
	ID          string         `json:"id" gorm:"primaryKey;type:text;not null"`
	UserID      string         `json:"user_id" gorm:"not null;index;type:text"`
	Action      string         `json:"action" gorm:"not null;size:64"`
	Description string         `json:"description" gorm:"type:text"`
	Metadata    datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

type UserRole struct {
	UserID string `json:"user_id" gorm:"primaryKey;type:text"`
	Role   string `json:"role" gorm:"primaryKey;size:32"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
