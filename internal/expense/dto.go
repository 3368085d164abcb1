package expense

import (
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/core/common/validation"
)

// CreateExpenseDTO accepts the amount as a string so the exact decimal value
// the client typed survives JSON transit.
type CreateExpenseDTO struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	ExpenseDate string  `json:"expense_date"`
	ReceiptURL  *string `json:"receipt_url,omitempty"`
	ReceiptName *string `json:"receipt_filename,omitempty"`
	Submit      bool    `json:"submit"`
}

// Parsed carries the validated, typed form of the request.
type parsedCreate struct {
	Amount      decimal.Decimal
	ExpenseDate time.Time
}

func (d *CreateExpenseDTO) parse() (*parsedCreate, *errors.AppError) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, errors.NewValidationFieldError("amount", "amount must be a decimal number", errors.ErrCodeInvalidAmount)
	}

	expenseDate, err := time.Parse("2006-01-02", d.ExpenseDate)
	if err != nil {
		return nil, errors.NewValidationFieldError("expense_date", "expense_date must be YYYY-MM-DD", errors.ErrCodeInvalidDate)
	}

	return &parsedCreate{Amount: amount, ExpenseDate: expenseDate}, nil
}

func (d *CreateExpenseDTO) Validate() (*parsedCreate, *errors.AppError) {
	parsed, appErr := d.parse()
	if appErr != nil {
		return nil, appErr
	}

	if err := validation.NewValidator().
		Field("description", d.Description).Required().MaxLength(500).
		Field("category", d.Category).Required().MaxLength(100).
		Field("amount", parsed.Amount).PositiveDecimal().
		Field("currency", d.Currency).Required().CurrencyCode().
		Field("expense_date", parsed.ExpenseDate).NotFuture().
		Validate(); err != nil {
		return nil, err
	}

	return parsed, nil
}

// UpdateExpenseDTO replaces the mutable fields of a draft wholesale. Partial
// patching is not supported; clients send the full draft back.
type UpdateExpenseDTO struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	ExpenseDate string  `json:"expense_date"`
	ReceiptURL  *string `json:"receipt_url,omitempty"`
	ReceiptName *string `json:"receipt_filename,omitempty"`
}

func (d *UpdateExpenseDTO) Validate() (*parsedCreate, *errors.AppError) {
	create := CreateExpenseDTO{
		Description: d.Description,
		Category:    d.Category,
		Amount:      d.Amount,
		Currency:    d.Currency,
		ExpenseDate: d.ExpenseDate,
	}
	return create.Validate()
}

type DecisionDTO struct {
	Decision string  `json:"decision"`
	Comments *string `json:"comments,omitempty"`
}

func (d *DecisionDTO) Validate() *errors.AppError {
	return validation.NewValidator().
		Field("decision", d.Decision).Required().OneOf(DecisionApproved, DecisionRejected).
		Validate()
}

// OverrideDTO carries an admin override. Unlike a chain decision it may also
// reopen a settled expense by forcing it back to pending.
type OverrideDTO struct {
	Status   string  `json:"status"`
	Comments *string `json:"comments,omitempty"`
}

func (d *OverrideDTO) Validate() *errors.AppError {
	return validation.NewValidator().
		Field("status", d.Status).Required().OneOf(StatusApproved, StatusRejected, StatusPending).
		Validate()
}

// ListFilter narrows admin and reporting queries. Zero values mean "no
// constraint".
type ListFilter struct {
	Status     string
	EmployeeID int64
	Category   string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Validate also normalizes pagination: page defaults to 1, limit to 50,
// capped at 200.
func (f *ListFilter) Validate() *errors.AppError {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	if f.Status == "" {
		return nil
	}
	return validation.NewValidator().
		Field("status", f.Status).OneOf(StatusDraft, StatusPending, StatusProcessing, StatusApproved, StatusRejected).
		Validate()
}

// ExpenseResponse is the wire shape for a single expense. Amounts serialize
// as strings to keep decimal exactness.
type ExpenseResponse struct {
	ID                   int64          `json:"id"`
	EmployeeID           int64          `json:"employee_id"`
	Description          string         `json:"description"`
	Category             string         `json:"category"`
	AmountOriginal       string         `json:"amount_original"`
	Currency             string         `json:"currency"`
	AmountCompany        *string        `json:"amount_company,omitempty"`
	Status               string         `json:"status"`
	ApprovalWorkflow     []ApprovalStep `json:"approval_workflow"`
	CurrentApproverIndex int            `json:"current_approver_index"`
	ApprovalRuleID       *int64         `json:"approval_rule_id,omitempty"`
	ReceiptURL           *string        `json:"receipt_url,omitempty"`
	ExpenseDate          string         `json:"expense_date"`
	SubmittedAt          *time.Time     `json:"submitted_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

func NewExpenseResponse(e *Expense) ExpenseResponse {
	var amountCompany *string
	if e.AmountCompany != nil {
		s := e.AmountCompany.StringFixed(2)
		amountCompany = &s
	}
	return ExpenseResponse{
		ID:                   e.ID,
		EmployeeID:           e.EmployeeID,
		Description:          e.Description,
		Category:             e.Category,
		AmountOriginal:       e.AmountOriginal.StringFixed(2),
		Currency:             e.Currency,
		AmountCompany:        amountCompany,
		Status:               e.Status,
		ApprovalWorkflow:     e.ApprovalWorkflow,
		CurrentApproverIndex: e.CurrentApproverIndex,
		ApprovalRuleID:       e.ApprovalRuleID,
		ReceiptURL:           e.ReceiptURL,
		ExpenseDate:          e.ExpenseDate.Format("2006-01-02"),
		SubmittedAt:          e.SubmittedAt,
		CreatedAt:            e.CreatedAt,
	}
}

type ListResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
	Total    int               `json:"total"`
}

func NewListResponse(expenses []*Expense) ListResponse {
	items := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		items[i] = NewExpenseResponse(e)
	}
	return ListResponse{Expenses: items, Total: len(items)}
}
