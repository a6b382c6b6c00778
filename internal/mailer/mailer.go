// Package mailer delivers generated report workbooks over SMTP.
package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/karuna-health/assess-portal/internal/config"
)

// Mailer sends report mail via plain SMTP with a single workbook attachment.
type Mailer struct {
	cfg config.MailConfig
}

// New builds a Mailer from configuration.
func New(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether delivery is configured. An empty host disables
// mail without being an error, so deployments without SMTP still work.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// SendReport mails the attachment to the configured recipient.
func (m *Mailer) SendReport(subject, body, filename string, attachment []byte) error {
	if !m.Enabled() {
		return eris.New("mailer: not configured")
	}
	if m.cfg.Recipient == "" {
		return eris.New("mailer: no recipient configured")
	}

	msg, err := BuildMessage(m.cfg.From, m.cfg.Recipient, subject, body, filename, attachment)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.Recipient}, msg); err != nil {
		return eris.Wrapf(err, "mailer: send to %s", m.cfg.Recipient)
	}

	zap.L().Info("report mailed",
		zap.String("recipient", m.cfg.Recipient),
		zap.String("attachment", filename))
	return nil
}

// BuildMessage assembles an RFC 5322 message with a text part and one
// base64-encoded xlsx attachment.
func BuildMessage(from, to, subject, body, filename string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", w.Boundary())
	buf.WriteString("\r\n")

	text, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "mailer: create text part")
	}
	if _, err := text.Write([]byte(body)); err != nil {
		return nil, eris.Wrap(err, "mailer: write body")
	}

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
	})
	if err != nil {
		return nil, eris.Wrap(err, "mailer: create attachment part")
	}

	enc := base64.NewEncoder(base64.StdEncoding, part)
	if _, err := enc.Write(attachment); err != nil {
		return nil, eris.Wrap(err, "mailer: encode attachment")
	}
	if err := enc.Close(); err != nil {
		return nil, eris.Wrap(err, "mailer: close encoder")
	}

	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "mailer: close writer")
	}
	return buf.Bytes(), nil
}
