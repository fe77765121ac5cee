package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/nats-io/nats.go"
)

// ExpenseStatusSubject is appended to the configured prefix.
const ExpenseStatusSubject = "expenses.status_changed"

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes expense status events as JSON.
type NATSNotifier struct {
	pub     Publisher
	subject string
}

var _ portssvc.ExpenseNotifier = (*NATSNotifier)(nil)

// NewNATSNotifier publishes on "<prefix>.expenses.status_changed", or the bare subject when prefix is empty.
func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	subject := ExpenseStatusSubject
	if prefix != "" {
		subject = prefix + "." + ExpenseStatusSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}
}

// ConnectNATS dials the server. An empty url disables NATS and returns nil.
func ConnectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url, nats.Name("transfer-backoffice"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func (n *NATSNotifier) Subject() string {
	return n.subject
}

func (n *NATSNotifier) NotifyExpenseStatusChanged(_ context.Context, event domain.ExpenseStatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode expense event: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish expense event on %s: %w", n.subject, err)
	}
	return nil
}
