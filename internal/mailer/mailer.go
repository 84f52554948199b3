package mailer

import (
	"bytes"
	"embed"
	ht "html/template"
	tt "text/template"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed "templates"
var templateFS embed.FS

type Mailer interface {
	Send(recipient, templateFile string, data any) error
}

type SMTPMailer struct {
	dialer *mail.Dialer
	sender string
	// attempts bounds DialAndSend retries for a single message
	attempts int
}

func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &SMTPMailer{
		dialer:   dialer,
		sender:   sender,
		attempts: 3,
	}
}

// Send renders the subject, plainBody and htmlBody blocks of templateFile and mails the result.
func (m *SMTPMailer) Send(recipient, templateFile string, data any) error {
	msg, err := m.render(recipient, templateFile, data)
	if err != nil {
		return err
	}

	for i := 1; i <= m.attempts; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}

		if i < m.attempts {
			time.Sleep(500 * time.Millisecond)
		}
	}

	return err
}

func (m *SMTPMailer) render(recipient, templateFile string, data any) (*mail.Message, error) {
	content, err := renderTemplate(templateFile, data)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", content.Subject)
	msg.SetBody("text/plain", content.PlainBody)
	msg.AddAlternative("text/html", content.HTMLBody)

	return msg, nil
}

// content is a rendered email template.
type content struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

func renderTemplate(templateFile string, data any) (content, error) {
	textTmpl, err := tt.New("").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return content{}, err
	}

	subject := new(bytes.Buffer)
	if err = textTmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return content{}, err
	}

	plainBody := new(bytes.Buffer)
	if err = textTmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return content{}, err
	}

	htmlTmpl, err := ht.New("").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return content{}, err
	}

	htmlBody := new(bytes.Buffer)
	if err = htmlTmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return content{}, err
	}

	return content{
		Subject:   subject.String(),
		PlainBody: plainBody.String(),
		HTMLBody:  htmlBody.String(),
	}, nil
}
