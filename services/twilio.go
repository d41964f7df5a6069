package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/pkg/phone"
	"github.com/ezfoia/foia_api/shared"
	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const TWILIO_SVC = "twilio_svc"

const (
	twilioDateLayout   = "Mon, 02 Jan 2006 15:04:05 -0700"
	twilioNotFoundCode = 20404
)

// TwilioService sends SMS and reads message delivery state from the Twilio
// REST API.
type TwilioService struct {
	appContext.DefaultService

	accountSid string
	authToken  string
	fromNumber string
	baseURL    string

	api *twilioApi.ApiService
}

// NewTwilioService builds a client for accountSid. A non-empty baseURL
// replaces the Twilio API host.
func NewTwilioService(accountSid, authToken, fromNumber, baseURL string) *TwilioService {
	svc := &TwilioService{
		accountSid: accountSid,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	svc.initClient()
	return svc
}

func (svc TwilioService) Id() string {
	return TWILIO_SVC
}

func (svc *TwilioService) Configure(ctx *appContext.Context) error {
	svc.accountSid = os.Getenv("TWILIO_ACCOUNT_SID")
	svc.authToken = os.Getenv("TWILIO_AUTH_TOKEN")
	svc.fromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	svc.initClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *TwilioService) Start() error {
	if !svc.Configured() {
		log.Warn("Twilio credentials not set, SMS notifications are disabled")
	}
	return nil
}

func (svc *TwilioService) Configured() bool {
	return svc.accountSid != "" && svc.authToken != ""
}

func (svc *TwilioService) initClient() {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if svc.baseURL != "" {
		if target, err := url.Parse(svc.baseURL); err == nil {
			httpClient.Transport = &hostRewriteTransport{target: target}
		} else {
			log.WithError(err).Warn("Ignoring invalid Twilio base URL")
		}
	}

	restClient := &twilioClient.Client{
		Credentials: twilioClient.NewCredentials(svc.accountSid, svc.authToken),
		HTTPClient:  httpClient,
	}
	restClient.SetAccountSid(svc.accountSid)

	svc.api = twilio.NewRestClientWithParams(twilio.ClientParams{Client: restClient}).Api
}

// hostRewriteTransport sends every request to target, keeping the path.
type hostRewriteTransport struct {
	target *url.URL
}

func (t *hostRewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

// SendSMS queues body for delivery to a canonical +1 number and returns the
// message sid. The SDK call is not cancellable; ctx only gates the start.
func (svc *TwilioService) SendSMS(ctx context.Context, to, body string) (string, error) {
	if !svc.Configured() || svc.fromNumber == "" {
		return "", fmt.Errorf("twilio: %w", shared.ErrServiceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(svc.fromNumber)
	params.SetBody(body)

	msg, err := svc.api.CreateMessage(params)
	if err != nil {
		log.WithError(err).WithField("to", phone.Mask(to)).Error("Twilio rejected message")
		return "", fmt.Errorf("twilio send: %w", err)
	}

	sid := deref(msg.Sid)
	log.WithFields(log.Fields{
		"sid": sid,
		"to":  phone.Mask(to),
	}).Info("SMS queued")
	return sid, nil
}

// FetchMessage returns the delivery state of one message with both numbers
// masked.
func (svc *TwilioService) FetchMessage(ctx context.Context, messageSid string) (*dto.MessageStatusResponse, error) {
	if !svc.Configured() {
		log.Error("Twilio credentials are not configured")
		return nil, shared.NewInternalError(shared.ErrServiceUnavailable, "Service temporarily unavailable")
	}
	if err := ctx.Err(); err != nil {
		return nil, shared.NewUpstreamError(err, "Failed to fetch message status")
	}

	msg, err := svc.api.FetchMessage(messageSid, &twilioApi.FetchMessageParams{})
	if err != nil {
		if isTwilioNotFound(err) {
			return nil, shared.NewNotFoundError(err, "Message not found")
		}
		log.WithError(err).WithField("sid", messageSid).Error("Twilio message lookup failed")
		return nil, shared.NewUpstreamError(err, "Failed to fetch message status")
	}

	return &dto.MessageStatusResponse{
		Sid:          deref(msg.Sid),
		Status:       deref(msg.Status),
		ErrorCode:    msg.ErrorCode,
		ErrorMessage: msg.ErrorMessage,
		To:           phone.Mask(deref(msg.To)),
		From:         phone.Mask(deref(msg.From)),
		DateCreated:  parseTwilioDate(deref(msg.DateCreated)),
		DateUpdated:  parseTwilioDate(deref(msg.DateUpdated)),
	}, nil
}

func isTwilioNotFound(err error) bool {
	var restErr *twilioClient.TwilioRestError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Status == http.StatusNotFound || restErr.Code == twilioNotFoundCode
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseTwilioDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(twilioDateLayout, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
