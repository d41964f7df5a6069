package services

import (
	"context"
	"errors"
	"fmt"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/pkg/phone"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const NOTIFICATION_SVC = "notification_svc"

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

type RequestReader interface {
	GetRequest(id string) (*model.FoiaRequest, error)
}

type ProfileReader interface {
	GetProfile(userID string) (*model.Profile, error)
}

type StatusMailer interface {
	Enabled() bool
	DashboardURL(requestID string) string
	SendStatusChangeEmail(ctx context.Context, to string, data StatusEmailData) (*EmailResult, error)
}

type SMSSender interface {
	Configured() bool
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// StatusNotifier is implemented by NotificationService.
type StatusNotifier interface {
	StatusChanged(ctx context.Context, requestID, newStatus, oldStatus string) (*dto.NotifyStatusChangeResponse, error)
}

var statusLabels = map[model.RequestStatus]string{
	model.StatusPending:    "Pending Review",
	model.StatusInProgress: "In Progress",
	model.StatusCompleted:  "Completed",
	model.StatusRejected:   "Rejected",
}

var statusMessages = map[model.RequestStatus]string{
	model.StatusPending:    "Your request has been received and is waiting for agency review.",
	model.StatusInProgress: "The agency is processing your request and gathering records.",
	model.StatusCompleted:  "The agency has completed your request. Records are available in your dashboard.",
	model.StatusRejected:   "The agency declined your request. Check your dashboard for details and next steps.",
}

// StatusLabel is the human-readable name of a stored status.
func StatusLabel(status string) string {
	if label, ok := statusLabels[model.ParseStatus(status)]; ok {
		return label
	}
	return "Updated"
}

// NotificationService tells a request owner that its status changed, by
// email and SMS according to their profile preferences.
type NotificationService struct {
	appContext.DefaultService

	requests RequestReader
	profiles ProfileReader
	activity ActivityRecorder
	mailer   StatusMailer
	sms      SMSSender

	pgSvc *PostgresService
}

func NewNotificationService(requests RequestReader, profiles ProfileReader, activity ActivityRecorder, mailer StatusMailer, sms SMSSender) *NotificationService {
	return &NotificationService{
		requests: requests,
		profiles: profiles,
		activity: activity,
		mailer:   mailer,
		sms:      sms,
	}
}

func (svc NotificationService) Id() string {
	return NOTIFICATION_SVC
}

func (svc *NotificationService) Configure(ctx *appContext.Context) error {
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.mailer = ctx.Service(EMAIL_SVC).(*EmailService)
	svc.sms = ctx.Service(TWILIO_SVC).(*TwilioService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *NotificationService) Start() error {
	svc.requests = svc.pgSvc.Requests()
	svc.profiles = svc.pgSvc.Profiles()
	svc.activity = svc.pgSvc.Profiles()
	return nil
}

// StatusChanged notifies the owner of requestID. Email and SMS go out
// concurrently; an SMS failure is logged, an email failure fails the call.
func (svc *NotificationService) StatusChanged(ctx context.Context, requestID, newStatus, oldStatus string) (*dto.NotifyStatusChangeResponse, error) {
	req, err := svc.requests.GetRequest(requestID)
	if err != nil {
		return nil, handleDBError(err)
	}

	profile, err := svc.profiles.GetProfile(req.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, handleDBError(err)
	}

	recordActivity(svc.activity, req.UserID, shared.ActivityStatusChanged,
		fmt.Sprintf("Request to %s is now %s", req.AgencyName, StatusLabel(newStatus)),
		map[string]interface{}{
			"request_id": req.ID,
			"old_status": oldStatus,
			"new_status": newStatus,
		})

	var (
		g           errgroup.Group
		emailResult *EmailResult
	)

	if profile != nil && profile.EmailNotifications && profile.Email != "" && svc.mailer != nil {
		g.Go(func() error {
			result, err := svc.mailer.SendStatusChangeEmail(ctx, profile.Email, svc.emailData(req, profile, newStatus, oldStatus))
			RecordNotification(channelEmail, err)
			if err != nil {
				return err
			}
			emailResult = result
			return nil
		})
	} else {
		RecordNotificationSkipped(channelEmail)
	}

	canonical := ""
	if profile != nil {
		canonical = phone.Canonical(profile.Phone)
	}
	if profile != nil && profile.SMSNotifications && canonical != "" && svc.sms != nil && svc.sms.Configured() {
		g.Go(func() error {
			sid, err := svc.sms.SendSMS(ctx, canonical, svc.smsBody(req, newStatus))
			RecordNotification(channelSMS, err)
			if err != nil {
				log.WithFields(log.Fields{
					"request_id": req.ID,
					"to":         phone.Mask(canonical),
					"error":      err.Error(),
				}).Error("Failed to send status SMS")
				return nil
			}
			log.WithFields(log.Fields{"request_id": req.ID, "sid": sid}).Debug("Status SMS sent")
			return nil
		})
	} else {
		RecordNotificationSkipped(channelSMS)
	}

	if err := g.Wait(); err != nil {
		log.WithFields(log.Fields{
			"request_id": req.ID,
			"error":      err.Error(),
		}).Error("Failed to send status email")
		return nil, shared.NewUpstreamError(err, "Failed to send notification")
	}

	log.WithFields(log.Fields{
		"request_id": req.ID,
		"old_status": oldStatus,
		"new_status": newStatus,
	}).Info("Status change notification processed")

	resp := &dto.NotifyStatusChangeResponse{Success: true}
	if emailResult != nil {
		resp.EmailResponse = emailResult
	}
	return resp, nil
}

func (svc *NotificationService) emailData(req *model.FoiaRequest, profile *model.Profile, newStatus, oldStatus string) StatusEmailData {
	name := profile.FullName
	if name == "" {
		name = "there"
	}

	data := StatusEmailData{
		Name:          name,
		AgencyName:    req.AgencyName,
		RecordType:    req.RecordType,
		StatusLabel:   StatusLabel(newStatus),
		StatusMessage: statusMessages[model.ParseStatus(newStatus)],
		DashboardURL:  svc.mailer.DashboardURL(req.ID),
	}
	if oldStatus != "" {
		data.OldStatusLabel = StatusLabel(oldStatus)
	}
	return data
}

func (svc *NotificationService) smsBody(req *model.FoiaRequest, newStatus string) string {
	body := fmt.Sprintf("EZFOIA: Your FOIA request to %s is now %s.", req.AgencyName, StatusLabel(newStatus))
	if svc.mailer != nil {
		body += " " + svc.mailer.DashboardURL(req.ID)
	}
	return body
}
