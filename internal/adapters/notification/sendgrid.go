package notification

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/utils"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendFunc delivers one message and reports the provider status.
type SendFunc func(ctx context.Context, msg *mail.SGMailV3) (status int, body string, err error)

// MailConfig names the sender and the role mailboxes.
type MailConfig struct {
	FromEmail     string
	FromName      string
	RoleMailboxes map[domain.Role]string
}

// EmailNotifier mails the requester and the mailboxes of the roles that must act next.
type EmailNotifier struct {
	send SendFunc
	cfg  MailConfig
}

var _ portssvc.ExpenseNotifier = (*EmailNotifier)(nil)

// NewSendGridNotifier sends through the SendGrid v3 API.
func NewSendGridNotifier(apiKey string, cfg MailConfig) *EmailNotifier {
	client := sendgrid.NewSendClient(apiKey)
	return NewEmailNotifier(func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
		resp, err := client.SendWithContext(ctx, msg)
		if err != nil {
			return 0, "", err
		}
		return resp.StatusCode, resp.Body, nil
	}, cfg)
}

func NewEmailNotifier(send SendFunc, cfg MailConfig) *EmailNotifier {
	return &EmailNotifier{send: send, cfg: cfg}
}

// recipients lists the addresses of the event, requester first, without duplicates.
func (n *EmailNotifier) recipients(event domain.ExpenseStatusEvent) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[strings.ToLower(addr)] {
			return
		}
		seen[strings.ToLower(addr)] = true
		out = append(out, addr)
	}
	add(event.RequesterEmail)
	for _, role := range event.NotifyRoles {
		add(n.cfg.RoleMailboxes[role])
	}
	return out
}

func (n *EmailNotifier) NotifyExpenseStatusChanged(ctx context.Context, event domain.ExpenseStatusEvent) error {
	to := n.recipients(event)
	if len(to) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Expense %s: %s", event.ExpenseID, event.Status)
	plain := fmt.Sprintf("Expense \"%s\" (%s) moved from %s to %s by %s.",
		event.Description, utils.FormatMoney(event.Amount, domain.LocalCurrency), event.PreviousStatus, event.Status, event.ActorRole)
	if event.Reason != "" {
		plain += " Reason: " + event.Reason
	}
	htmlContent := "<p>" + html.EscapeString(plain) + "</p>"

	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(n.cfg.FromName, n.cfg.FromEmail))
	msg.Subject = subject
	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	msg.AddPersonalizations(p)
	msg.AddContent(mail.NewContent("text/plain", plain), mail.NewContent("text/html", htmlContent))

	status, body, err := n.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send expense email: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
	}
	return nil
}
