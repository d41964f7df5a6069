package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const testMessageSid = "SM0123456789abcdef0123456789abcdef"

func TestTwilioFetchMessageMasksNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages/"+testMessageSid+".json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "token" {
			t.Errorf("expected basic auth, got %q %q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"sid": "`+testMessageSid+`",
			"status": "undelivered",
			"error_code": 30003,
			"error_message": "Unreachable destination handset",
			"to": "+15551234567",
			"from": "+15557654321",
			"date_created": "Mon, 10 Mar 2025 12:00:00 +0000",
			"date_updated": "Mon, 10 Mar 2025 12:00:05 +0000"
		}`)
	}))
	defer srv.Close()

	svc := NewTwilioService("AC123", "token", "+15550000000", srv.URL)
	got, err := svc.FetchMessage(context.Background(), testMessageSid)
	if err != nil {
		t.Fatal(err)
	}

	if got.To != "***-***-4567" || got.From != "***-***-4321" {
		t.Errorf("numbers should be masked, got to=%q from=%q", got.To, got.From)
	}
	if got.Status != "undelivered" || got.ErrorCode == nil || *got.ErrorCode != 30003 {
		t.Errorf("unexpected status fields %+v", got)
	}
	want := time.Date(2025, 3, 10, 12, 0, 5, 0, time.UTC)
	if got.DateUpdated == nil || !got.DateUpdated.Equal(want) {
		t.Errorf("expected date_updated %v, got %v", want, got.DateUpdated)
	}
}

func TestTwilioFetchMessageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "MM") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"code":20404,"message":"The requested resource was not found","status":404}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewTwilioService("AC123", "token", "", srv.URL)

	_, err := svc.FetchMessage(context.Background(), "MM0123456789abcdef0123456789abcdef")
	if appStatus(t, err) != http.StatusNotFound {
		t.Errorf("missing message should be 404")
	}

	_, err = svc.FetchMessage(context.Background(), testMessageSid)
	if appStatus(t, err) != http.StatusBadGateway {
		t.Errorf("provider failure should be 502")
	}

	_, err = NewTwilioService("", "", "", srv.URL).FetchMessage(context.Background(), testMessageSid)
	if appStatus(t, err) != http.StatusInternalServerError {
		t.Errorf("missing credentials should be 500")
	}
}

func TestTwilioSendSMS(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Error(err)
			return
		}
		form = r.PostForm
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"sid":"`+testMessageSid+`","status":"queued"}`)
	}))
	defer srv.Close()

	sid, err := NewTwilioService("AC123", "token", "+15550000000", srv.URL).
		SendSMS(context.Background(), "+15551234567", "Your request is completed")
	if err != nil {
		t.Fatal(err)
	}
	if sid != testMessageSid {
		t.Errorf("unexpected sid %q", sid)
	}
	if form.Get("To") != "+15551234567" || form.Get("From") != "+15550000000" || form.Get("Body") == "" {
		t.Errorf("unexpected form %v", form)
	}
}
