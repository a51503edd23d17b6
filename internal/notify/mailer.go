// Package notify renders and sends the application's emails: booking
// confirmations with an attached QR ticket, show reminders and new-show
// alerts.  Sending is fire-and-forget from the workflows' perspective;
// failures are reported to the caller for accounting, never retried inline.
package notify

import (
	"io"

	"gopkg.in/gomail.v2"
)

// Attachment is a binary part embedded in a message.  A non-empty ContentID
// lets the HTML body reference it inline (cid:...).
type Attachment struct {
	Filename  string
	Content   []byte
	ContentID string
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers messages.  The SMTP implementation below is swapped for a
// recording fake in tests.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTPMailer configures delivery through the given relay.
func NewSMTPMailer(host string, port int, user, pass, sender string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		sender: sender,
	}
}

// Send delivers one message, dialing per send.  Volume here is a handful of
// notifications per booking; connection reuse is not worth the bookkeeping.
func (m *SMTPMailer) Send(msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.sender)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)
	for _, att := range msg.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentID != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-ID": {"<" + att.ContentID + ">"},
			}))
		}
		gm.Attach(att.Filename, settings...)
	}
	return m.dialer.DialAndSend(gm)
}
