package services

import (
	"context"
	"testing"

	"github.com/ezfoia/foia_api/dto"
)

type recordingNotifier struct {
	calls []StatusEvent
}

func (r *recordingNotifier) StatusChanged(_ context.Context, requestID, newStatus, oldStatus string) (*dto.NotifyStatusChangeResponse, error) {
	r.calls = append(r.calls, StatusEvent{RequestID: requestID, NewStatus: newStatus, OldStatus: oldStatus})
	return &dto.NotifyStatusChangeResponse{Success: true}, nil
}

func TestDecodeStatusEvent(t *testing.T) {
	ev, err := decodeStatusEvent(`{"request_id":"req-1","new_status":"completed","old_status":"in_progress"}`)
	if err != nil {
		t.Fatal(err)
	}
	if ev.RequestID != "req-1" || ev.NewStatus != "completed" || ev.OldStatus != "in_progress" {
		t.Errorf("unexpected event %+v", ev)
	}

	for _, payload := range []string{"", "not json", `{"request_id":"req-1"}`, `{"new_status":"completed"}`} {
		if _, err := decodeStatusEvent(payload); err == nil {
			t.Errorf("%q should be rejected", payload)
		}
	}
}

func TestStatusListenerHandle(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := &StatusListenerService{notifier: notifier}

	svc.handle(context.Background(), `{"request_id":"req-1","new_status":"rejected","old_status":"pending"}`)
	svc.handle(context.Background(), `garbage`)

	if len(notifier.calls) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.calls))
	}
	if notifier.calls[0].NewStatus != "rejected" || notifier.calls[0].OldStatus != "pending" {
		t.Errorf("unexpected call %+v", notifier.calls[0])
	}
}
