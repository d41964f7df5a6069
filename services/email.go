package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/smtp"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	appContext "github.com/alphabatem/common/context"
	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

// EmailResult is what the delivery provider answered.
type EmailResult struct {
	Provider string `json:"provider"`
	ID       string `json:"id,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// EmailService delivers templated mail through Resend when RESEND_API_KEY is
// set, SMTP when SMTP_HOST is set, and otherwise skips sending.
type EmailService struct {
	appContext.DefaultService

	resendKey    string
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	baseURL      string

	resend    *resend.Client
	templates map[string]*template.Template
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *appContext.Context) error {
	svc.resendKey = os.Getenv("RESEND_API_KEY")
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")
	svc.baseURL = strings.TrimRight(os.Getenv("APP_BASE_URL"), "/")

	// Set defaults if not provided
	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = "EZFOIA"
	}
	if svc.fromEmail == "" {
		svc.fromEmail = "notifications@ezfoia.com"
	}
	if svc.baseURL == "" {
		svc.baseURL = "http://localhost:5173"
	}

	if svc.resendKey != "" {
		client, err := newResendClient(svc.resendKey, os.Getenv("RESEND_BASE_URL"))
		if err != nil {
			return err
		}
		svc.resend = client
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	if err := svc.loadTemplates(); err != nil {
		return err
	}

	switch {
	case svc.resend != nil:
		log.Info("Email delivery via Resend")
	case svc.smtpHost != "":
		log.WithField("host", svc.smtpHost).Info("Email delivery via SMTP")
	default:
		log.Warn("No email provider configured, status emails will be skipped")
	}
	return nil
}

const statusChangeEmailHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your FOIA request was updated - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1E3A8A; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .status { background-color: white; border-left: 4px solid #1E3A8A; padding: 15px; margin: 20px 0; }
        .button { display: inline-block; padding: 12px 24px; background-color: #1E3A8A; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Request status updated</h1>
        </div>
        <div class="content">
            <h2>Hi {{.Name}},</h2>
            <p>Your FOIA request to <strong>{{.AgencyName}}</strong> for {{.RecordType}} has a new status.</p>
            <div class="status">
                {{if .OldStatusLabel}}<p>Previous status: {{.OldStatusLabel}}</p>{{end}}
                <p><strong>Current status: {{.StatusLabel}}</strong></p>
                <p>{{.StatusMessage}}</p>
            </div>
            <a href="{{.DashboardURL}}" class="button">View your request</a>
            <p>You are receiving this email because status notifications are turned on in your profile.</p>
        </div>
        <div class="footer">
            <p>&copy; {{.Year}} {{.AppName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>
`

type StatusEmailData struct {
	AppName        string
	Name           string
	AgencyName     string
	RecordType     string
	StatusLabel    string
	OldStatusLabel string
	StatusMessage  string
	DashboardURL   string
	Year           int
}

func (svc *EmailService) loadTemplates() error {
	svc.templates = make(map[string]*template.Template)

	tmpl, err := template.New("status_change").Parse(statusChangeEmailHTML)
	if err != nil {
		return fmt.Errorf("failed to parse status change email template: %w", err)
	}
	svc.templates["status_change"] = tmpl
	return nil
}

// Enabled reports whether any provider is configured.
func (svc *EmailService) Enabled() bool {
	return svc.resend != nil || svc.smtpHost != ""
}

// DashboardURL links to a request on the web app.
func (svc *EmailService) DashboardURL(requestID string) string {
	return svc.baseURL + "/dashboard/requests/" + requestID
}

func (svc *EmailService) SendStatusChangeEmail(ctx context.Context, to string, data StatusEmailData) (*EmailResult, error) {
	if data.AppName == "" {
		data.AppName = svc.fromName
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}

	subject := fmt.Sprintf("Your FOIA request is now %s", data.StatusLabel)
	return svc.sendTemplateEmail(ctx, to, subject, "status_change", data)
}

func (svc *EmailService) sendTemplateEmail(ctx context.Context, to, subject, templateName string, data interface{}) (*EmailResult, error) {
	html, text, err := svc.render(templateName, data)
	if err != nil {
		return nil, err
	}
	return svc.Send(ctx, to, subject, html, text)
}

// render executes an HTML template and derives the plain text part from it.
func (svc *EmailService) render(templateName string, data interface{}) (html, text string, err error) {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return "", "", fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	html = body.String()
	text, err = htmltomarkdown.ConvertString(html)
	if err != nil {
		log.WithError(err).WithField("template", templateName).Warn("Failed to render plain text email part")
		text = ""
	}
	return html, text, nil
}

// Send delivers one message through the configured provider.
func (svc *EmailService) Send(ctx context.Context, to, subject, html, text string) (*EmailResult, error) {
	switch {
	case svc.resend != nil:
		return svc.sendResend(ctx, to, subject, html, text)
	case svc.smtpHost != "":
		return svc.sendSMTP(to, subject, html, text)
	default:
		log.WithField("subject", subject).Warn("Email not configured, skipping")
		return &EmailResult{Provider: "none", Skipped: true}, nil
	}
}

// newResendClient talks to Resend at baseURL, or the public API when baseURL
// is empty.
func newResendClient(apiKey, baseURL string) (*resend.Client, error) {
	client := resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey)
	if baseURL == "" {
		return client, nil
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse resend url: %w", err)
	}
	client.BaseURL = u
	return client, nil
}

func (svc *EmailService) sendResend(ctx context.Context, to, subject, html, text string) (*EmailResult, error) {
	sent, err := svc.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", svc.fromName, svc.fromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		log.WithError(err).WithField("subject", subject).Error("Resend rejected email")
		return nil, fmt.Errorf("resend: %w", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject, "id": sent.Id}).Info("Email sent via Resend")
	return &EmailResult{Provider: "resend", ID: sent.Id}, nil
}

func (svc *EmailService) sendSMTP(to, subject, html, text string) (*EmailResult, error) {
	msg, err := buildMultipartMessage(fmt.Sprintf("%s <%s>", svc.fromName, svc.fromEmail), to, subject, html, text)
	if err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if svc.smtpUsername != "" {
		auth = smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)
	}

	if err := smtp.SendMail(svc.smtpHost+":"+svc.smtpPort, auth, svc.fromEmail, []string{to}, msg); err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent via SMTP")
	return &EmailResult{Provider: "smtp"}, nil
}

func buildMultipartMessage(from, to, subject, html, text string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", html},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
