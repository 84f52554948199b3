package mailer

import "sync"

// Message is a notification email as the renter or host would receive it.
type Message struct {
	Recipient string
	Template  string
	Subject   string
	PlainBody string
}

// Outbox renders notification emails with the real templates and keeps them in memory instead of
// handing them to an SMTP server.
type Outbox struct {
	mu       sync.RWMutex
	messages []Message
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(recipient, templateFile string, data any) error {
	rendered, err := renderTemplate(templateFile, data)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.messages = append(o.messages, Message{
		Recipient: recipient,
		Template:  templateFile,
		Subject:   rendered.Subject,
		PlainBody: rendered.PlainBody,
	})

	return nil
}

// Sent returns the delivered messages, oldest first.
func (o *Outbox) Sent() []Message {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return append([]Message(nil), o.messages...)
}

// SentTo returns the messages delivered to one recipient.
func (o *Outbox) SentTo(recipient string) []Message {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out []Message
	for _, m := range o.messages {
		if m.Recipient == recipient {
			out = append(out, m)
		}
	}

	return out
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.messages = nil
}
