package expense

import (
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/approveflow/expense-service/internal"
	expenseDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/expense"
	"github.com/approveflow/expense-service/internal/rule"
)

// Expense lifecycle statuses. Draft expenses are mutable and invisible to
// approvers; pending/processing expenses sit in the approval pipeline;
// approved/rejected are terminal.
const (
	StatusDraft      = "draft"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// Per-step statuses inside the approval chain.
const (
	StepPending  = "pending"
	StepApproved = "approved"
	StepRejected = "rejected"
)

// Decisions an approver or admin can record.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ApprovalStep is one approver's slot in the chain. Sequence is informational
// ordering metadata; position in the slice is what the engine advances over.
type ApprovalStep struct {
	ApproverID int64      `json:"approver_id"`
	Sequence   int        `json:"sequence"`
	Status     string     `json:"status"`
	Comments   *string    `json:"comments,omitempty"`
	ActedAt    *time.Time `json:"acted_at,omitempty"`
}

// Expense is the aggregate root for the approval workflow. All state
// transitions go through the methods in workflow.go so the chain, the
// cursor and the status can never drift apart.
type Expense struct {
	ID                   int64            `json:"id"`
	EmployeeID           int64            `json:"employee_id"`
	CompanyID            int64            `json:"company_id"`
	Description          string           `json:"description"`
	Category             string           `json:"category"`
	AmountOriginal       decimal.Decimal  `json:"amount_original"`
	Currency             string           `json:"currency"`
	AmountCompany        *decimal.Decimal `json:"amount_company,omitempty"`
	Status               string           `json:"status"`
	ApprovalWorkflow     []ApprovalStep   `json:"approval_workflow"`
	CurrentApproverIndex int              `json:"current_approver_index"`
	ApprovalRuleID       *int64           `json:"approval_rule_id,omitempty"`
	ReceiptURL           *string          `json:"receipt_url,omitempty"`
	ReceiptFileName      *string          `json:"receipt_filename,omitempty"`
	ExpenseDate          time.Time        `json:"expense_date"`
	SubmittedAt          *time.Time       `json:"submitted_at,omitempty"`
	Version              int64            `json:"-"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func (e *Expense) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}

func (e *Expense) IsDraft() bool {
	return e.Status == StatusDraft
}

// PendingStep returns the step the cursor points at, or ErrNoPendingStep when
// the chain is exhausted or the expense is not awaiting a decision. A cursor
// outside [0, len] means the persisted state was corrupted by a bug, which is
// reported as an invariant violation rather than a user-facing condition.
func (e *Expense) PendingStep() (*ApprovalStep, error) {
	if e.IsTerminal() || e.IsDraft() {
		return nil, errors.ErrNoPendingStep
	}
	if e.CurrentApproverIndex < 0 || e.CurrentApproverIndex > len(e.ApprovalWorkflow) {
		return nil, errors.NewInvariantViolation("approval cursor out of chain bounds")
	}
	if e.CurrentApproverIndex == len(e.ApprovalWorkflow) {
		return nil, errors.ErrNoPendingStep
	}
	return &e.ApprovalWorkflow[e.CurrentApproverIndex], nil
}

// IsApproverInChain reports whether the user holds any step of the chain,
// acted or not. Used for read visibility, not for advance authorization.
func (e *Expense) IsApproverInChain(userID int64) bool {
	for _, step := range e.ApprovalWorkflow {
		if step.ApproverID == userID {
			return true
		}
	}
	return false
}

// RuleSnapshot is the immutable view rule conditions evaluate against.
func (e *Expense) RuleSnapshot() rule.Snapshot {
	return rule.Snapshot{
		AmountOriginal: e.AmountOriginal,
		AmountCompany:  e.AmountCompany,
		Currency:       e.Currency,
		Category:       e.Category,
	}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	steps := make(expenseDatamodel.ApprovalSteps, len(e.ApprovalWorkflow))
	for i, s := range e.ApprovalWorkflow {
		steps[i] = expenseDatamodel.ApprovalStep{
			ApproverID: s.ApproverID,
			Sequence:   s.Sequence,
			Status:     s.Status,
			Comments:   s.Comments,
			ActedAt:    s.ActedAt,
		}
	}
	return &expenseDatamodel.Expense{
		ID:                   e.ID,
		EmployeeID:           e.EmployeeID,
		CompanyID:            e.CompanyID,
		Description:          e.Description,
		Category:             e.Category,
		AmountOriginal:       e.AmountOriginal,
		Currency:             e.Currency,
		AmountCompany:        e.AmountCompany,
		Status:               e.Status,
		ApprovalWorkflow:     steps,
		CurrentApproverIndex: e.CurrentApproverIndex,
		ApprovalRuleID:       e.ApprovalRuleID,
		ReceiptURL:           e.ReceiptURL,
		ReceiptFileName:      e.ReceiptFileName,
		ExpenseDate:          e.ExpenseDate,
		SubmittedAt:          e.SubmittedAt,
		Version:              e.Version,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func FromDataModel(m *expenseDatamodel.Expense) *Expense {
	steps := make([]ApprovalStep, len(m.ApprovalWorkflow))
	for i, s := range m.ApprovalWorkflow {
		steps[i] = ApprovalStep{
			ApproverID: s.ApproverID,
			Sequence:   s.Sequence,
			Status:     s.Status,
			Comments:   s.Comments,
			ActedAt:    s.ActedAt,
		}
	}
	return &Expense{
		ID:                   m.ID,
		EmployeeID:           m.EmployeeID,
		CompanyID:            m.CompanyID,
		Description:          m.Description,
		Category:             m.Category,
		AmountOriginal:       m.AmountOriginal,
		Currency:             m.Currency,
		AmountCompany:        m.AmountCompany,
		Status:               m.Status,
		ApprovalWorkflow:     steps,
		CurrentApproverIndex: m.CurrentApproverIndex,
		ApprovalRuleID:       m.ApprovalRuleID,
		ReceiptURL:           m.ReceiptURL,
		ReceiptFileName:      m.ReceiptFileName,
		ExpenseDate:          m.ExpenseDate,
		SubmittedAt:          m.SubmittedAt,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func FromDataModelSlice(models []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}
