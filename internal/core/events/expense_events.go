package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	ExpenseSubmittedEvent  = "expense.submitted"
	ExpenseDecidedEvent    = "expense.decided"
	ExpenseOverriddenEvent = "expense.overridden"
)

// NewExpenseSubmitted is published after an expense enters the approval
// pipeline with its chain attached.
func NewExpenseSubmitted(expenseID, employeeID, companyID int64, steps int) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      ExpenseSubmittedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id":  expenseID,
			"employee_id": employeeID,
			"company_id":  companyID,
			"chain_steps": steps,
		},
	}
}

// NewExpenseDecided is published after a successful advance on the active
// approval step.
func NewExpenseDecided(expenseID, approverID int64, decision, status string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      ExpenseDecidedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id":  expenseID,
			"approver_id": approverID,
			"decision":    decision,
			"status":      status,
		},
	}
}

// NewExpenseOverridden is published after an admin override commits.
func NewExpenseOverridden(expenseID, adminID int64, status string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      ExpenseOverriddenEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id": expenseID,
			"admin_id":   adminID,
			"status":     status,
		},
	}
}
