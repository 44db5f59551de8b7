package email

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"
)

// Message is one outbound notification. It is built per accepted submission
// and handed to a Transport; nothing keeps it afterwards.
type Message struct {
	ID      string
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Date    time.Time
}

// Bytes renders msg as an RFC 5322 message with a quoted-printable HTML body.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", strings.Join(m.To, ", "))
	if m.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", m.ReplyTo)
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", sanitizeHeaderValue(m.Subject)))
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	writeHeader(&buf, "Date", date.UTC().Format(time.RFC1123Z))
	if m.ID != "" {
		writeHeader(&buf, "Message-ID", m.ID)
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", "text/html; charset=UTF-8")
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(normalizeBody(m.HTML))); err != nil {
		return nil, fmt.Errorf("failed to encode email body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode email body: %w", err)
	}

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(sanitizeHeaderValue(value))
	buf.WriteString("\r\n")
}

func sanitizeHeaderValue(value string) string {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}

func normalizeBody(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}
