package services

import (
	"context"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
)

const FOIA_SVC = "foia_svc"

type RequestRepository interface {
	ListRequestsByUser(userID string) ([]model.FoiaRequest, error)
	GetRequest(id string) (*model.FoiaRequest, error)
	UpdateRequestStatus(id, status string, at time.Time) (before *model.FoiaRequest, after *model.FoiaRequest, err error)
}

// FoiaService serves the request dashboard and the admin status update.
type FoiaService struct {
	appContext.DefaultService

	requests     RequestRepository
	notifier     StatusNotifier
	notifyDirect bool
	now          func() time.Time

	pgSvc       *PostgresService
	listenerSvc *StatusListenerService
}

func NewFoiaService(requests RequestRepository, notifier StatusNotifier, notifyDirect bool) *FoiaService {
	return &FoiaService{
		requests:     requests,
		notifier:     notifier,
		notifyDirect: notifyDirect,
		now:          time.Now,
	}
}

func (svc FoiaService) Id() string {
	return FOIA_SVC
}

func (svc *FoiaService) Configure(ctx *appContext.Context) error {
	svc.pgSvc = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.listenerSvc = ctx.Service(STATUS_LISTENER_SVC).(*StatusListenerService)
	svc.notifier = ctx.Service(NOTIFICATION_SVC).(*NotificationService)
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

func (svc *FoiaService) Start() error {
	svc.requests = svc.pgSvc.Requests()
	svc.notifyDirect = !svc.listenerSvc.Enabled()
	return nil
}

func (svc *FoiaService) ListRequests(userID string) (*dto.FoiaRequestListResponse, error) {
	reqs, err := svc.requests.ListRequestsByUser(userID)
	if err != nil {
		return nil, handleDBError(err)
	}

	out := make([]dto.FoiaRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, ToFoiaRequestResponse(&reqs[i]))
	}
	return &dto.FoiaRequestListResponse{Requests: out, Total: len(out)}, nil
}

func (svc *FoiaService) GetRequest(userID, id string) (*dto.FoiaRequestResponse, error) {
	req, err := svc.requests.GetRequest(id)
	if err != nil {
		return nil, handleDBError(err)
	}
	if req.UserID != userID {
		return nil, shared.NewForbiddenError(nil, "Forbidden")
	}

	resp := ToFoiaRequestResponse(req)
	return &resp, nil
}

// UpdateStatus changes a request's status. When the database listener is
// off the owner is notified here; a failed notification does not undo the
// change.
func (svc *FoiaService) UpdateStatus(ctx context.Context, actorID, id, status string) (*dto.FoiaRequestResponse, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !model.ParseStatus(status).Known() {
		return nil, shared.NewValidationError([]dto.ValidationError{{Field: "status", Message: "Unknown status"}})
	}

	before, after, err := svc.requests.UpdateRequestStatus(id, status, svc.now().UTC())
	if err != nil {
		return nil, handleDBError(err)
	}

	log.WithFields(log.Fields{
		"request_id": id,
		"actor_id":   actorID,
		"old_status": before.Status,
		"new_status": after.Status,
	}).Info("Request status updated")

	if svc.notifyDirect && before.Status != after.Status && svc.notifier != nil {
		if _, err := svc.notifier.StatusChanged(ctx, id, after.Status, before.Status); err != nil {
			log.WithFields(log.Fields{
				"request_id": id,
				"error":      err.Error(),
			}).Error("Status updated but notification failed")
		}
	}

	resp := ToFoiaRequestResponse(after)
	return &resp, nil
}
