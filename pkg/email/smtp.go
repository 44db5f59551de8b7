package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"portfolio-backend/pkg/logger"
)

// Transport hands a message to the mail provider.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// Server is an SMTP endpoint.
type Server struct {
	Host string
	Port string
}

// knownServices maps EMAIL_SERVICE identifiers to their submission endpoints.
var knownServices = map[string]Server{
	"gmail":      {Host: "smtp.gmail.com", Port: "587"},
	"outlook":    {Host: "smtp.office365.com", Port: "587"},
	"hotmail":    {Host: "smtp.office365.com", Port: "587"},
	"office365":  {Host: "smtp.office365.com", Port: "587"},
	"yahoo":      {Host: "smtp.mail.yahoo.com", Port: "587"},
	"icloud":     {Host: "smtp.mail.me.com", Port: "587"},
	"zoho":       {Host: "smtp.zoho.com", Port: "587"},
	"brevo":      {Host: "smtp-relay.brevo.com", Port: "587"},
	"sendinblue": {Host: "smtp-relay.brevo.com", Port: "587"},
	"sendgrid":   {Host: "smtp.sendgrid.net", Port: "587"},
	"mailgun":    {Host: "smtp.mailgun.org", Port: "587"},
}

// ResolveServer picks the SMTP endpoint: explicit host/port win over the service identifier.
func ResolveServer(service, host, port string) (Server, bool) {
	if host != "" {
		if port == "" {
			port = "587"
		}
		return Server{Host: host, Port: port}, true
	}
	srv, ok := knownServices[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return Server{}, false
	}
	if port != "" {
		srv.Port = port
	}
	return srv, true
}

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPTransport delivers messages over SMTP with STARTTLS (or implicit TLS on 465) and PLAIN auth.
type SMTPTransport struct {
	server    Server
	username  string
	password  string
	dialer    Dialer
	tlsConfig *tls.Config
	helloName string
}

// NewSMTPTransport builds a transport for server authenticating as username.
func NewSMTPTransport(server Server, username, password string) *SMTPTransport {
	return &SMTPTransport{
		server:   server,
		username: username,
		password: password,
		dialer:   &net.Dialer{Timeout: 30 * time.Second},
		tlsConfig: &tls.Config{
			ServerName: server.Host,
			MinVersion: tls.VersionTLS12,
		},
		helloName: "localhost",
	}
}

// Send delivers msg. It honours ctx cancellation for the whole session.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := envelopeAddress(msg.From)
	if err != nil {
		return fmt.Errorf("smtp: invalid from address: %w", err)
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		addr, err := envelopeAddress(to)
		if err != nil {
			return fmt.Errorf("smtp: invalid recipient: %w", err)
		}
		recipients = append(recipients, addr)
	}
	if len(recipients) == 0 {
		return errors.New("smtp: at least one recipient is required")
	}

	body, err := msg.Bytes()
	if err != nil {
		return err
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	client, err := smtp.NewClient(conn, t.server.Host)
	if err != nil {
		return fmt.Errorf("smtp: new client: %w", err)
	}
	defer client.Close()

	if err := client.Hello(t.helloName); err != nil {
		return fmt.Errorf("smtp: hello: %w", err)
	}

	if _, isTLS := conn.(*tls.Conn); !isTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.tlsConfig.Clone()); err != nil {
				return fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", t.username, t.password, t.server.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp: data write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp: data close: %w", err)
	}

	// The server accepted the message; a failed QUIT does not undo delivery.
	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		logger.Log.Debug("smtp quit failed after delivery", "error", err)
	}

	return nil
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(t.server.Host, t.server.Port)
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if t.server.Port != "465" {
		return conn, nil
	}

	tlsConn := tls.Client(conn, t.tlsConfig.Clone())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func envelopeAddress(value string) (string, error) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}
