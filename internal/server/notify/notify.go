// Package notify composes templated member notifications and operator
// alerts. Delivery is at most once; failures are logged, not retried.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

// Template keys sent by the intake path.
const (
	KeyUnknown  = "AUTO_UNKNOWN"
	KeyMismatch = "AUTO_MISMATCH"
	KeyReceipt  = "AUTO_RECEIPT"
)

// FieldEmail names the field holding the recipient address.
const FieldEmail = "Email"

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers a composed message.
type Mailer interface {
	Deliver(ctx context.Context, msg Message) error
}

// Sender sends the template named key filled with fields.
type Sender interface {
	Send(ctx context.Context, key string, fields map[string]string, attachments ...Attachment) error
}

// TemplateFinder looks templates up case-insensitively and returns
// common.ErrorNotFound when there is none.
type TemplateFinder interface {
	FindByKey(ctx context.Context, key string) (*models.Template, error)
}

type TemplateSender struct {
	templates TemplateFinder
	mailer    Mailer
	log       logging.Logger
}

func NewTemplateSender(templates TemplateFinder, mailer Mailer, log logging.Logger) *TemplateSender {
	return &TemplateSender{templates: templates, mailer: mailer, log: log.With("module", "notify")}
}

// Send renders the template and delivers it to fields["Email"]. A missing
// template or recipient is logged and skipped.
func (s *TemplateSender) Send(ctx context.Context, key string, fields map[string]string, attachments ...Attachment) error {
	tpl, err := s.templates.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "missing template", "key", key)
			return nil
		}
		return fmt.Errorf("template %s: %w", key, err)
	}

	to := strings.TrimSpace(fields[FieldEmail])
	if to == "" {
		s.log.Warn(ctx, "no recipient", "key", key)
		return nil
	}

	msg := Message{
		To:          to,
		Subject:     Render(tpl.Subject, fields),
		Body:        Render(tpl.Body, fields),
		Attachments: attachments,
	}
	if err := s.mailer.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s: %w", key, err)
	}
	return nil
}

// Render replaces every {{Field}} placeholder with its value. Unknown
// placeholders are left as they are.
func Render(text string, fields map[string]string) string {
	if len(fields) == 0 {
		return text
	}
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log.With("module", "mailer")}
}

func (m *LogMailer) Deliver(ctx context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Name)
	}
	m.log.Info(ctx, "mail", "to", msg.To, "subject", msg.Subject, "body", msg.Body, "attachments", names)
	return nil
}

// Alerter notifies the operator of system failures.
type Alerter struct {
	mailer   Mailer
	operator string
	log      logging.Logger
}

func NewAlerter(mailer Mailer, operatorEmail string, log logging.Logger) *Alerter {
	return &Alerter{mailer: mailer, operator: strings.TrimSpace(operatorEmail), log: log.With("module", "alert")}
}

// Alert always logs and mails the operator when one is configured.
func (a *Alerter) Alert(ctx context.Context, subject, body string) {
	a.log.Error(ctx, subject, "detail", body)
	if a.operator == "" || a.mailer == nil {
		return
	}
	if err := a.mailer.Deliver(ctx, Message{To: a.operator, Subject: subject, Body: body}); err != nil {
		a.log.Error(ctx, "alert delivery failed", "error", err)
	}
}
