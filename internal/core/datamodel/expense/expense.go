package expense

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalStep is one element of the persisted approval chain. Steps are
// embedded in the expense row as JSON; the chain is the durable contract
// between the workflow engine and storage.
type ApprovalStep struct {
	ApproverID int64      `json:"approver_id"`
	Sequence   int        `json:"sequence"`
	Status     string     `json:"status"`
	Comments   *string    `json:"comments,omitempty"`
	ActedAt    *time.Time `json:"acted_at,omitempty"`
}

type ApprovalSteps []ApprovalStep

func (s ApprovalSteps) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *ApprovalSteps) Scan(value interface{}) error {
	if value == nil {
		*s = ApprovalSteps{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for approval steps")
	}
	if len(data) == 0 {
		*s = ApprovalSteps{}
		return nil
	}
	return json.Unmarshal(data, s)
}

type Expense struct {
	ID                   int64            `gorm:"primaryKey"`
	EmployeeID           int64            `gorm:"column:employee_id;not null"`
	CompanyID            int64            `gorm:"column:company_id;not null"`
	Description          string           `gorm:"column:description"`
	Category             string           `gorm:"column:category"`
	AmountOriginal       decimal.Decimal  `gorm:"column:amount_original;type:numeric(14,2);not null"`
	Currency             string           `gorm:"column:currency;not null"`
	AmountCompany        *decimal.Decimal `gorm:"column:amount_company;type:numeric(14,2)"`
	Status               string           `gorm:"column:status;default:draft"`
	ApprovalWorkflow     ApprovalSteps    `gorm:"column:approval_workflow;type:jsonb"`
	CurrentApproverIndex int              `gorm:"column:current_approver_index;default:0"`
	ApprovalRuleID       *int64           `gorm:"column:approval_rule_id"`
	ReceiptURL           *string          `gorm:"column:receipt_url"`
	ReceiptFileName      *string          `gorm:"column:receipt_filename"`
	ExpenseDate          time.Time        `gorm:"column:expense_date;type:date"`
	SubmittedAt          *time.Time       `gorm:"column:submitted_at"`
	Version              int64            `gorm:"column:version;default:0"`
	CreatedAt            time.Time        `gorm:"column:created_at"`
	UpdatedAt            time.Time        `gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}
