package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/adapters/notification"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(subject string, data []byte) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyExpenseStatusChanged(ctx context.Context, event domain.ExpenseStatusEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func sampleEvent() domain.ExpenseStatusEvent {
	return domain.ExpenseStatusEvent{
		ExpenseID:      "exp-1",
		Description:    "Printer toner",
		Amount:         decimal.NewFromInt(45000),
		PreviousStatus: domain.ExpensePending,
		Status:         domain.ExpenseAccountingApproved,
		Stage:          domain.StageAccounting,
		RequesterID:    "user-cash",
		RequesterEmail: "cashier@example.com",
		ActorID:        "user-acc",
		ActorRole:      domain.RoleAccounting,
		NotifyRoles:    []domain.Role{domain.RoleDirector},
		OccurredAt:     time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestNATSNotifier_PublishesJSONOnPrefixedSubject(t *testing.T) {
	pub := new(MockPublisher)
	n := notification.NewNATSNotifier(pub, "backoffice")
	assert.Equal(t, "backoffice.expenses.status_changed", n.Subject())

	pub.On("Publish", "backoffice.expenses.status_changed", mock.MatchedBy(func(data []byte) bool {
		var got domain.ExpenseStatusEvent
		if err := json.Unmarshal(data, &got); err != nil {
			return false
		}
		return got.ExpenseID == "exp-1" && got.Status == domain.ExpenseAccountingApproved
	})).Return(nil).Once()

	require.NoError(t, n.NotifyExpenseStatusChanged(context.Background(), sampleEvent()))
	pub.AssertExpectations(t)
}

func TestNATSNotifier_PublishError(t *testing.T) {
	pub := new(MockPublisher)
	n := notification.NewNATSNotifier(pub, "")
	assert.Equal(t, notification.ExpenseStatusSubject, n.Subject())

	pub.On("Publish", notification.ExpenseStatusSubject, mock.Anything).Return(errors.New("nats: connection closed")).Once()

	err := n.NotifyExpenseStatusChanged(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection closed")
}

func TestConnectNATS_EmptyURLDisabled(t *testing.T) {
	nc, err := notification.ConnectNATS("")
	assert.NoError(t, err)
	assert.Nil(t, nc)
}

func TestEmailNotifier_MailsRequesterAndRoleMailbox(t *testing.T) {
	var sent *mail.SGMailV3
	n := notification.NewEmailNotifier(func(_ context.Context, msg *mail.SGMailV3) (int, string, error) {
		sent = msg
		return 202, "", nil
	}, notification.MailConfig{
		FromEmail: "no-reply@example.com",
		FromName:  "Back-office",
		RoleMailboxes: map[domain.Role]string{
			domain.RoleDirector:   "direction@example.com",
			domain.RoleAccounting: "compta@example.com",
		},
	})

	require.NoError(t, n.NotifyExpenseStatusChanged(context.Background(), sampleEvent()))
	require.NotNil(t, sent)
	assert.Equal(t, "Expense exp-1: accounting_approved", sent.Subject)
	require.Len(t, sent.Personalizations, 1)
	to := []string{}
	for _, e := range sent.Personalizations[0].To {
		to = append(to, e.Address)
	}
	assert.Equal(t, []string{"cashier@example.com", "direction@example.com"}, to)
	require.Len(t, sent.Content, 2)
	assert.Contains(t, sent.Content[0].Value, "Printer toner")
	assert.Contains(t, sent.Content[0].Value, "45000 XOF")
}

func TestEmailNotifier_NoRecipientsSkipsSend(t *testing.T) {
	called := false
	n := notification.NewEmailNotifier(func(_ context.Context, _ *mail.SGMailV3) (int, string, error) {
		called = true
		return 202, "", nil
	}, notification.MailConfig{FromEmail: "no-reply@example.com"})

	event := sampleEvent()
	event.RequesterEmail = ""
	require.NoError(t, n.NotifyExpenseStatusChanged(context.Background(), event))
	assert.False(t, called)
}

func TestEmailNotifier_ProviderError(t *testing.T) {
	n := notification.NewEmailNotifier(func(_ context.Context, _ *mail.SGMailV3) (int, string, error) {
		return 401, "unauthorized", nil
	}, notification.MailConfig{FromEmail: "no-reply@example.com"})

	err := n.NotifyExpenseStatusChanged(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestMulti_TriesEveryNotifier(t *testing.T) {
	first := new(MockNotifier)
	second := new(MockNotifier)
	first.On("NotifyExpenseStatusChanged", mock.Anything, mock.Anything).Return(errors.New("down")).Once()
	second.On("NotifyExpenseStatusChanged", mock.Anything, mock.Anything).Return(nil).Once()

	err := notification.Multi{first, second}.NotifyExpenseStatusChanged(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}
