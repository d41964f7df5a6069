package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/shared"
	"gorm.io/gorm"
)

type fakeRequestRepo struct {
	reqs map[string]*model.FoiaRequest
}

func (f *fakeRequestRepo) ListRequestsByUser(userID string) ([]model.FoiaRequest, error) {
	var out []model.FoiaRequest
	for _, r := range f.reqs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) GetRequest(id string) (*model.FoiaRequest, error) {
	r, ok := f.reqs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequestRepo) UpdateRequestStatus(id, status string, at time.Time) (*model.FoiaRequest, *model.FoiaRequest, error) {
	r, ok := f.reqs[id]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}
	before := *r
	r.Status = status
	r.UpdatedAt = at
	after := *r
	return &before, &after, nil
}

var foiaCreated = time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)

func newFoiaFixture(notifyDirect bool) (*FoiaService, *recordingNotifier) {
	repo := &fakeRequestRepo{reqs: map[string]*model.FoiaRequest{
		"req-1": {ID: "req-1", UserID: "user-alice", AgencyName: "FBI", Status: "pending", CreatedAt: foiaCreated, UpdatedAt: foiaCreated},
		"req-2": {ID: "req-2", UserID: "user-alice", AgencyName: "EPA", Status: "Completed", CreatedAt: foiaCreated, UpdatedAt: foiaCreated},
		"req-3": {ID: "req-3", UserID: "user-bob", AgencyName: "DOJ", Status: "pending", CreatedAt: foiaCreated, UpdatedAt: foiaCreated},
	}}
	notifier := &recordingNotifier{}
	svc := NewFoiaService(repo, notifier, notifyDirect)
	svc.now = func() time.Time { return foiaCreated.Add(48 * time.Hour) }
	return svc, notifier
}

func TestListRequestsAttachesTimelines(t *testing.T) {
	svc, _ := newFoiaFixture(true)

	list, err := svc.ListRequests("user-alice")
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 2 || len(list.Requests) != 2 {
		t.Fatalf("expected alice's two requests, got %d", list.Total)
	}
	for _, r := range list.Requests {
		if len(r.Timeline) != 4 {
			t.Errorf("%s: expected 4 steps", r.ID)
		}
		if r.ID == "req-2" && r.Status != "completed" {
			t.Errorf("stored status should be reported canonically, got %q", r.Status)
		}
	}

	empty, err := svc.ListRequests("user-nobody")
	if err != nil {
		t.Fatal(err)
	}
	if empty.Requests == nil || empty.Total != 0 {
		t.Errorf("empty list should encode as [], got %+v", empty)
	}
}

func TestGetRequestOwnership(t *testing.T) {
	svc, _ := newFoiaFixture(true)

	if _, err := svc.GetRequest("user-alice", "req-1"); err != nil {
		t.Errorf("owner should see request: %v", err)
	}
	if _, err := svc.GetRequest("user-alice", "req-3"); appStatus(t, err) != http.StatusForbidden {
		t.Errorf("other users' requests are forbidden")
	}
	if _, err := svc.GetRequest("user-alice", "req-9"); appStatus(t, err) != http.StatusNotFound {
		t.Errorf("missing request should be 404")
	}
}

func TestUpdateStatusNotifiesDirectly(t *testing.T) {
	svc, notifier := newFoiaFixture(true)

	got, err := svc.UpdateStatus(context.Background(), "admin-1", "req-1", " In_Progress ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "in_progress" || got.Timeline[2].Status != StepCurrent {
		t.Errorf("unexpected response %+v", got)
	}
	if !got.UpdatedAt.Equal(foiaCreated.Add(48 * time.Hour)) {
		t.Errorf("updated_at should be bumped, got %v", got.UpdatedAt)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].OldStatus != "pending" || notifier.calls[0].NewStatus != "in_progress" {
		t.Errorf("expected one notification, got %+v", notifier.calls)
	}

	if _, err := svc.UpdateStatus(context.Background(), "admin-1", "req-1", "in_progress"); err != nil {
		t.Fatal(err)
	}
	if len(notifier.calls) != 1 {
		t.Error("an unchanged status must not notify")
	}
}

func TestUpdateStatusWithListener(t *testing.T) {
	svc, notifier := newFoiaFixture(false)

	if _, err := svc.UpdateStatus(context.Background(), "admin-1", "req-1", "completed"); err != nil {
		t.Fatal(err)
	}
	if len(notifier.calls) != 0 {
		t.Error("the database listener sends notifications when enabled")
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	svc, _ := newFoiaFixture(true)

	_, err := svc.UpdateStatus(context.Background(), "admin-1", "req-1", "archived")
	appErr, ok := shared.GetAppError(err)
	if !ok || appErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if details, _ := appErr.Details.([]dto.ValidationError); len(details) != 1 || details[0].Field != "status" {
		t.Errorf("expected status field error, got %+v", appErr.Details)
	}
}
