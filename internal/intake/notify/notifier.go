// Package notify tells an applicant that onboarding is complete, by email
// through SES and by SMS through SNS.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/models"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// EmailSender is satisfied by *aws.SESClient.
type EmailSender interface {
	SendText(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	Timeout      time.Duration
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels,omitempty"`
	SentAt         string   `json:"sentAt"`
}

type Notifier struct {
	email  EmailSender
	sms    SMSSender
	cfg    Config
	logger logger.Logger
}

// New builds a notifier. A nil sender disables its channel.
func New(email EmailSender, sms SMSSender, cfg Config, log logger.Logger) *Notifier {
	if email == nil {
		cfg.EmailEnabled = false
	}
	if sms == nil {
		cfg.SMSEnabled = false
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Notifier{
		email:  email,
		sms:    sms,
		cfg:    cfg,
		logger: logger.ForComponent(log, "notify"),
	}
}

const (
	subjectTemplate = "Your internship profile is complete"
	emailTemplate   = "Hello {{name}},\n\nYour internship profile {{profileId}} has been submitted with {{preferences}} preference(s).{{scoreNote}}\n\nWe will reach out when matching opens."
	smsTemplate     = "Hi {{name}}, your internship profile {{profileId}} is submitted."
)

// OnComplete matches wizard.CompletionFunc. Delivery failures are logged
// and never reach the applicant's submission.
func (n *Notifier) OnComplete(ctx context.Context, snap models.IntakeSnapshot, res *submission.Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.Timeout)
	defer cancel()
	if _, err := n.Send(ctx, snap, res); err != nil {
		n.logger.Warn("onboarding notification failed", map[string]interface{}{
			"studentId": snap.StudentID,
			"error":     err.Error(),
		})
	}
}

// Send delivers the onboarding-complete message on every enabled channel
// the applicant has an address for. The first channel failure stops
// delivery and is returned as NOTIFICATION_SEND_FAILED.
func (n *Notifier) Send(ctx context.Context, snap models.IntakeSnapshot, res *submission.Result) (*Output, error) {
	out := &Output{
		NotificationID: uuid.NewString(),
		Status:         StatusDisabled,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	data := templateData(snap, res)

	if n.cfg.EmailEnabled && snap.Email != "" {
		id, err := n.email.SendText(ctx, snap.Email, subjectTemplate, renderTemplate(emailTemplate, data))
		if err != nil {
			out.Status = StatusFailed
			return out, errors.NewNotificationSendFailedError("email", err)
		}
		out.Channels = append(out.Channels, "email")
		n.logger.Debug("email sent", map[string]interface{}{"messageId": id})
	}

	if phone := e164(snap.Personal.Mobile); n.cfg.SMSEnabled && phone != "" {
		id, err := n.sms.SendSMS(ctx, phone, renderTemplate(smsTemplate, data))
		if err != nil {
			out.Status = StatusFailed
			return out, errors.NewNotificationSendFailedError("sms", err)
		}
		out.Channels = append(out.Channels, "sms")
		n.logger.Debug("sms sent", map[string]interface{}{"messageId": id})
	}

	if len(out.Channels) > 0 {
		out.Status = StatusSent
	}
	n.logger.Info("onboarding notification processed", map[string]interface{}{
		"studentId":      snap.StudentID,
		"notificationId": out.NotificationID,
		"status":         out.Status,
		"channels":       out.Channels,
	})
	return out, nil
}

func templateData(snap models.IntakeSnapshot, res *submission.Result) map[string]interface{} {
	data := map[string]interface{}{
		"name":        snap.Personal.FullName,
		"studentId":   snap.StudentID,
		"profileId":   "",
		"preferences": 0,
		"scoreNote":   "",
	}
	if res != nil {
		data["profileId"] = res.ProfileID
		data["preferences"] = res.PreferencesSubmitted
		if !res.ScoresComputed {
			data["scoreNote"] = " Your match scores will be ready shortly."
		}
	}
	return data
}

// renderTemplate substitutes {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", fmt.Sprint(v))
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

// e164 turns a 10-digit Indian mobile into +91 form. Numbers already
// carrying a country code pass through; anything else is dropped.
func e164(mobile string) string {
	var b strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	m := b.String()
	switch {
	case strings.HasPrefix(m, "+") && len(m) >= 11:
		return m
	case len(m) == 10:
		return "+91" + m
	case len(m) == 12 && strings.HasPrefix(m, "91"):
		return "+" + m
	}
	return ""
}
