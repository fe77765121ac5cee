package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ExpenseStatus is the position of an expense in the two-stage approval flow.
type ExpenseStatus string

const (
	ExpensePending            ExpenseStatus = "pending"
	ExpenseAccountingApproved ExpenseStatus = "accounting_approved"
	ExpenseAccountingRejected ExpenseStatus = "accounting_rejected"
	ExpenseDirectorApproved   ExpenseStatus = "director_approved"
	ExpenseDirectorRejected   ExpenseStatus = "director_rejected"

	// Single-step statuses written by older releases.
	ExpenseLegacyApproved ExpenseStatus = "approved"
	ExpenseLegacyRejected ExpenseStatus = "rejected"
)

// IsValid reports whether s is a known status, legacy ones included.
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpensePending, ExpenseAccountingApproved, ExpenseAccountingRejected,
		ExpenseDirectorApproved, ExpenseDirectorRejected,
		ExpenseLegacyApproved, ExpenseLegacyRejected:
		return true
	}
	return false
}

// Normalized maps legacy statuses onto their two-stage equivalents.
func (s ExpenseStatus) Normalized() ExpenseStatus {
	switch s {
	case ExpenseLegacyApproved:
		return ExpenseDirectorApproved
	case ExpenseLegacyRejected:
		return ExpenseDirectorRejected
	}
	return s
}

// Equivalents lists the stored statuses that read as s, legacy ones included.
func (s ExpenseStatus) Equivalents() []ExpenseStatus {
	switch s.Normalized() {
	case ExpenseDirectorApproved:
		return []ExpenseStatus{ExpenseDirectorApproved, ExpenseLegacyApproved}
	case ExpenseDirectorRejected:
		return []ExpenseStatus{ExpenseDirectorRejected, ExpenseLegacyRejected}
	}
	return []ExpenseStatus{s}
}

// IsFinalApproved reports whether the expense has been approved by the director.
func (s ExpenseStatus) IsFinalApproved() bool {
	return s.Normalized() == ExpenseDirectorApproved
}

// IsTerminal reports whether no further transition is possible.
func (s ExpenseStatus) IsTerminal() bool {
	switch s.Normalized() {
	case ExpenseAccountingRejected, ExpenseDirectorApproved, ExpenseDirectorRejected:
		return true
	}
	return false
}

// ValidationStage is the approval stage an actor is acting at.
type ValidationStage string

const (
	StageAccounting ValidationStage = "accounting"
	StageDirector   ValidationStage = "director"
)

// IsValid reports whether s is a known stage.
func (s ValidationStage) IsValid() bool {
	return s == StageAccounting || s == StageDirector
}

// Expense is a monetary request going through accounting then director validation.
type Expense struct {
	ExpenseID     string          `json:"expenseID"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	RequesterID   string          `json:"requesterID"`
	RequesterName string          `json:"requesterName"`
	RequesterMail string          `json:"requesterEmail"`
	AgencyID      string          `json:"agencyID"`
	Comment       string          `json:"comment"`
	Status        ExpenseStatus   `json:"status"`

	DeductFromExcess  bool   `json:"deductFromExcess"`
	DeductedCashierID string `json:"deductedCashierID,omitempty"`

	AccountingValidatedBy     string     `json:"accountingValidatedBy,omitempty"`
	AccountingValidatedAt     *time.Time `json:"accountingValidatedAt,omitempty"`
	AccountingRejectionReason string     `json:"accountingRejectionReason,omitempty"`
	DirectorValidatedBy       string     `json:"directorValidatedBy,omitempty"`
	DirectorValidatedAt       *time.Time `json:"directorValidatedAt,omitempty"`
	DirectorRejectionReason   string     `json:"directorRejectionReason,omitempty"`

	AuditFields
}

// CanModify reports whether the expense may still be edited or deleted.
func (e Expense) CanModify() bool {
	return !e.Status.IsFinalApproved()
}

// NextExpenseStatus is the transition table of the two-stage flow.
func NextExpenseStatus(current ExpenseStatus, stage ValidationStage, approved bool) (ExpenseStatus, error) {
	switch stage {
	case StageAccounting:
		if current != ExpensePending {
			return "", fmt.Errorf("%w: accounting validation requires status %s, expense is %s", apperrors.ErrInvalidState, ExpensePending, current)
		}
		if approved {
			return ExpenseAccountingApproved, nil
		}
		return ExpenseAccountingRejected, nil
	case StageDirector:
		if current != ExpenseAccountingApproved {
			return "", fmt.Errorf("%w: director validation requires status %s, expense is %s", apperrors.ErrInvalidState, ExpenseAccountingApproved, current)
		}
		if approved {
			return ExpenseDirectorApproved, nil
		}
		return ExpenseDirectorRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown validation stage %q", apperrors.ErrValidation, stage)
	}
}

// ApplyValidation moves the expense through one stage and records who did it.
// A rejection needs a non-empty reason; nothing is changed on error.
func (e *Expense) ApplyValidation(stage ValidationStage, approved bool, reason string, validatorID string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if !approved && reason == "" {
		return fmt.Errorf("%w: a rejection reason is required", apperrors.ErrValidation)
	}

	next, err := NextExpenseStatus(e.Status, stage, approved)
	if err != nil {
		return err
	}

	at := now
	switch stage {
	case StageAccounting:
		e.AccountingValidatedBy = validatorID
		e.AccountingValidatedAt = &at
		if !approved {
			e.AccountingRejectionReason = reason
		}
	case StageDirector:
		e.DirectorValidatedBy = validatorID
		e.DirectorValidatedAt = &at
		if !approved {
			e.DirectorRejectionReason = reason
		}
	}
	e.Status = next
	e.LastUpdatedAt = now
	e.LastUpdatedBy = validatorID
	return nil
}

// ApplyBypassApproval approves a pending expense at director level without the accounting stage.
func (e *Expense) ApplyBypassApproval(validatorID string, now time.Time) error {
	if e.Status != ExpensePending {
		return fmt.Errorf("%w: bypass approval requires status %s, expense is %s", apperrors.ErrInvalidState, ExpensePending, e.Status)
	}
	at := now
	e.DirectorValidatedBy = validatorID
	e.DirectorValidatedAt = &at
	e.Status = ExpenseDirectorApproved
	e.LastUpdatedAt = now
	e.LastUpdatedBy = validatorID
	return nil
}

// ExpenseFilter narrows expense listings. Cursor fields come from a decoded page token.
type ExpenseFilter struct {
	Status          ExpenseStatus
	AgencyID        string
	RequesterID     string
	Limit           int
	CursorCreatedAt *time.Time
	CursorID        string
}

// ExpenseStatusEvent is emitted after a committed status change.
type ExpenseStatusEvent struct {
	ExpenseID      string          `json:"expenseID"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousStatus ExpenseStatus   `json:"previousStatus"`
	Status         ExpenseStatus   `json:"status"`
	Stage          ValidationStage `json:"stage"`
	Reason         string          `json:"reason,omitempty"`
	RequesterID    string          `json:"requesterID"`
	RequesterEmail string          `json:"requesterEmail,omitempty"`
	ActorID        string          `json:"actorID"`
	ActorRole      Role            `json:"actorRole"`
	NotifyRoles    []Role          `json:"notifyRoles"`
	OccurredAt     time.Time       `json:"occurredAt"`
}
