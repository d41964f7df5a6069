package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/ezfoia/foia_api/model"
	"github.com/ezfoia/foia_api/shared"
	"gorm.io/gorm"
)

type fakeRequestReader map[string]*model.FoiaRequest

func (f fakeRequestReader) GetRequest(id string) (*model.FoiaRequest, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeProfileReader map[string]*model.Profile

func (f fakeProfileReader) GetProfile(userID string) (*model.Profile, error) {
	if p, ok := f[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMailer struct {
	err  error
	to   []string
	data []StatusEmailData
}

func (f *fakeMailer) Enabled() bool { return true }

func (f *fakeMailer) DashboardURL(requestID string) string {
	return "https://app.example.com/dashboard/requests/" + requestID
}

func (f *fakeMailer) SendStatusChangeEmail(_ context.Context, to string, data StatusEmailData) (*EmailResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.to = append(f.to, to)
	f.data = append(f.data, data)
	return &EmailResult{Provider: "resend", ID: "email_1"}, nil
}

type fakeSMS struct {
	configured bool
	err        error
	to         []string
	bodies     []string
}

func (f *fakeSMS) Configured() bool { return f.configured }

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return testMessageSid, nil
}

func notificationFixture(profile *model.Profile) (*NotificationService, *fakeMailer, *fakeSMS, *fakeActivity) {
	requests := fakeRequestReader{
		"req-1": {ID: "req-1", UserID: "user-alice", AgencyName: "City of Springfield", RecordType: "contracts", Status: "completed"},
	}
	profiles := fakeProfileReader{}
	if profile != nil {
		profiles[profile.UserID] = profile
	}
	mailer := &fakeMailer{}
	sms := &fakeSMS{configured: true}
	activity := &fakeActivity{}
	return NewNotificationService(requests, profiles, activity, mailer, sms), mailer, sms, activity
}

func TestStatusChangedSendsBothChannels(t *testing.T) {
	svc, mailer, sms, activity := notificationFixture(&model.Profile{
		UserID:             "user-alice",
		FullName:           "Alice",
		Email:              "alice@example.com",
		Phone:              "(555) 123-4567",
		EmailNotifications: true,
		SMSNotifications:   true,
	})

	resp, err := svc.StatusChanged(context.Background(), "req-1", "completed", "in_progress")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if result, ok := resp.EmailResponse.(*EmailResult); !ok || result.ID != "email_1" {
		t.Errorf("expected provider response, got %#v", resp.EmailResponse)
	}

	if len(mailer.to) != 1 || mailer.to[0] != "alice@example.com" {
		t.Fatalf("expected one email to alice, got %v", mailer.to)
	}
	if mailer.data[0].StatusLabel != "Completed" || mailer.data[0].OldStatusLabel != "In Progress" {
		t.Errorf("unexpected labels %+v", mailer.data[0])
	}

	if len(sms.to) != 1 || sms.to[0] != "+15551234567" {
		t.Fatalf("SMS should go to the canonical number, got %v", sms.to)
	}
	if !strings.Contains(sms.bodies[0], "City of Springfield") || !strings.Contains(sms.bodies[0], "Completed") {
		t.Errorf("unexpected SMS body %q", sms.bodies[0])
	}

	if len(activity.entries) != 1 || activity.entries[0].Action != shared.ActivityStatusChanged {
		t.Errorf("expected a status_changed log, got %+v", activity.entries)
	}
}

func TestStatusChangedRespectsPreferences(t *testing.T) {
	svc, mailer, sms, _ := notificationFixture(&model.Profile{
		UserID:             "user-alice",
		Email:              "alice@example.com",
		Phone:              "555-12",
		EmailNotifications: false,
		SMSNotifications:   true,
	})

	resp, err := svc.StatusChanged(context.Background(), "req-1", "rejected", "")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.EmailResponse != nil {
		t.Errorf("expected success without email response, got %+v", resp)
	}
	if len(mailer.to) != 0 {
		t.Error("email notifications are off")
	}
	if len(sms.to) != 0 {
		t.Error("an incomplete phone number must not receive SMS")
	}
}

func TestStatusChangedWithoutProfile(t *testing.T) {
	svc, mailer, sms, activity := notificationFixture(nil)

	resp, err := svc.StatusChanged(context.Background(), "req-1", "in_progress", "pending")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(mailer.to) != 0 || len(sms.to) != 0 {
		t.Errorf("nothing should be sent without a profile, got %+v", resp)
	}
	if len(activity.entries) != 1 {
		t.Error("the change is still logged")
	}
}

func TestStatusChangedFailures(t *testing.T) {
	svc, _, _, _ := notificationFixture(nil)
	if _, err := svc.StatusChanged(context.Background(), "missing", "completed", ""); appStatus(t, err) != http.StatusNotFound {
		t.Errorf("unknown request should be 404")
	}

	profile := &model.Profile{
		UserID:             "user-alice",
		Email:              "alice@example.com",
		Phone:              "5551234567",
		EmailNotifications: true,
		SMSNotifications:   true,
	}

	svc, mailer, _, _ := notificationFixture(profile)
	mailer.err = errors.New("smtp down")
	if _, err := svc.StatusChanged(context.Background(), "req-1", "completed", ""); appStatus(t, err) != http.StatusBadGateway {
		t.Errorf("email failure should be 502")
	}

	svc, _, sms, _ := notificationFixture(profile)
	sms.err = errors.New("twilio down")
	if resp, err := svc.StatusChanged(context.Background(), "req-1", "completed", ""); err != nil || !resp.Success {
		t.Errorf("SMS failure should not fail the call, got %v", err)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[string]string{
		"pending":     "Pending Review",
		"processing":  "In Progress",
		"IN_PROGRESS": "In Progress",
		"completed":   "Completed",
		"denied":      "Rejected",
		"archived":    "Updated",
	}
	for status, want := range tests {
		if got := StatusLabel(status); got != want {
			t.Errorf("StatusLabel(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestStatusEmailRendering(t *testing.T) {
	svc := &EmailService{fromName: "EZFOIA"}
	if err := svc.loadTemplates(); err != nil {
		t.Fatal(err)
	}

	html, text, err := svc.render("status_change", StatusEmailData{
		AppName:        "EZFOIA",
		Name:           "Alice <script>",
		AgencyName:     "City of Springfield",
		RecordType:     "contracts",
		StatusLabel:    "Completed",
		OldStatusLabel: "In Progress",
		DashboardURL:   "https://app.example.com/dashboard/requests/req-1",
		Year:           2025,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("template data must be escaped")
	}
	for _, want := range []string{"City of Springfield", "Current status: Completed", "Previous status: In Progress"} {
		if !strings.Contains(text, want) {
			t.Errorf("text part missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "<div") {
		t.Error("text part should not contain markup")
	}

	result, err := svc.SendStatusChangeEmail(context.Background(), "alice@example.com", StatusEmailData{StatusLabel: "Completed"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Skipped || result.Provider != "none" {
		t.Errorf("without a provider the email is skipped, got %+v", result)
	}
}

func TestBuildMultipartMessage(t *testing.T) {
	msg, err := buildMultipartMessage("EZFOIA <n@example.com>", "alice@example.com", "Subject", "<p>Hello</p>", "Hello")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"multipart/alternative", "text/plain", "text/html", "<p>Hello</p>"} {
		if !strings.Contains(string(msg), want) {
			t.Errorf("message missing %q", want)
		}
	}
}
