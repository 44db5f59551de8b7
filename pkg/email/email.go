package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"portfolio-backend/config"
	"portfolio-backend/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotConfigured is the configuration-class failure: credentials or endpoint missing.
	ErrNotConfigured = errors.New("email service is not configured")
	// ErrDelivery wraps failures reported by the transport.
	ErrDelivery = errors.New("email delivery failed")
)

// EmailService turns accepted contact submissions into notification emails
type EmailService struct {
	username  string
	password  string
	toEmail   string
	server    Server
	hasServer bool
	transport Transport
	now       func() time.Time
}

// ServiceOption customizes an EmailService.
type ServiceOption func(*EmailService)

// WithTransport replaces the SMTP transport.
func WithTransport(t Transport) ServiceOption {
	return func(s *EmailService) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithClock overrides the clock used for the Date header.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *EmailService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewEmailService creates the dispatcher from the mail settings in cfg
func NewEmailService(cfg *config.Config, opts ...ServiceOption) *EmailService {
	server, ok := ResolveServer(cfg.EmailService, cfg.SMTPHost, cfg.SMTPPort)

	toEmail := cfg.ContactEmail
	if toEmail == "" {
		toEmail = cfg.EmailUser
	}

	s := &EmailService{
		username:  cfg.EmailUser,
		password:  cfg.EmailPassword,
		toEmail:   toEmail,
		server:    server,
		hasServer: ok,
		now:       time.Now,
	}
	s.transport = NewSMTPTransport(server, cfg.EmailUser, cfg.EmailPassword)

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// contactEmailTemplate is the HTML template for contact form emails
const contactEmailTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333; border-bottom: 2px solid #007bff; padding-bottom: 10px;">
    New Contact Form Submission
  </h2>
  <div style="background: #f8f9fa; padding: 20px; border-radius: 5px; margin: 20px 0;">
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Subject:</strong> {{.Subject}}</p>
  </div>
  <div style="margin: 20px 0;">
    <h3 style="color: #333;">Message:</h3>
    <div style="background: white; padding: 15px; border-left: 4px solid #007bff; border-radius: 0 5px 5px 0;">
      {{nl2br .Message}}
    </div>
  </div>
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; color: #666; font-size: 12px;">
    <p>This message was sent from your portfolio contact form.</p>
    <p>Reply directly to this email to respond to {{.Name}}.</p>
  </div>
</div>`

var contactTmpl = template.Must(template.New("contact").Funcs(template.FuncMap{
	"nl2br": nl2br,
}).Parse(contactEmailTemplate))

// nl2br escapes s and turns its line breaks into <br> tags
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// SubjectFor returns the notification subject for a submitter's subject line.
func SubjectFor(subject string) string {
	return fmt.Sprintf("Portfolio Contact: %s", subject)
}

// BuildMessage renders the notification for req. req must already be validated.
func (s *EmailService) BuildMessage(req *domain.ContactRequest) (*Message, error) {
	var body bytes.Buffer
	if err := contactTmpl.Execute(&body, req); err != nil {
		return nil, fmt.Errorf("failed to execute email template: %w", err)
	}

	domainPart := "localhost"
	if at := strings.LastIndex(s.username, "@"); at >= 0 && at < len(s.username)-1 {
		domainPart = s.username[at+1:]
	}

	return &Message{
		ID:      fmt.Sprintf("<%s@%s>", uuid.NewString(), domainPart),
		From:    s.username,
		To:      []string{s.toEmail},
		ReplyTo: req.Email,
		Subject: SubjectFor(req.Subject),
		HTML:    body.String(),
		Date:    s.now(),
	}, nil
}

// Send builds the notification for req and hands it to the transport.
// Missing configuration fails with ErrNotConfigured before any network call.
func (s *EmailService) Send(ctx context.Context, req *domain.ContactRequest) error {
	if err := s.configError(); err != nil {
		return err
	}

	msg, err := s.BuildMessage(req)
	if err != nil {
		return err
	}

	if err := s.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// IsConfigured checks if the email service has credentials and an endpoint
func (s *EmailService) IsConfigured() bool {
	return s.configError() == nil
}

func (s *EmailService) configError() error {
	switch {
	case s.username == "" || s.password == "":
		return fmt.Errorf("%w: missing EMAIL_USER or EMAIL_PASSWORD", ErrNotConfigured)
	case !s.hasServer:
		return fmt.Errorf("%w: unknown email service and no SMTP_HOST", ErrNotConfigured)
	case s.toEmail == "":
		return fmt.Errorf("%w: no destination mailbox", ErrNotConfigured)
	}
	return nil
}
