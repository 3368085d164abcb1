package rule

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	ruleDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/rule"
)

const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// Condition types understood by the evaluator. Anything else evaluates
// false so malformed rules degrade instead of blocking submissions.
const (
	ConditionAmountThreshold = "amount_threshold"
	ConditionCategory        = "category"
	ConditionCurrency        = "currency"
)

type Condition struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type Approver struct {
	UserID   int64 `json:"user_id"`
	Sequence int   `json:"sequence"`
}

// Rule routes matching expenses through its designated approver sequence
// instead of the default manager chain. Scoped per company.
type Rule struct {
	ID         int64       `json:"id"`
	CompanyID  int64       `json:"company_id"`
	Name       string      `json:"name"`
	Operator   string      `json:"operator"`
	Conditions []Condition `json:"conditions"`
	Approvers  []Approver  `json:"approvers"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Snapshot is the immutable view of an expense a rule evaluates against.
// The normalized amount is preferred for threshold checks; when conversion
// was unavailable the original amount stands in.
type Snapshot struct {
	AmountOriginal decimal.Decimal
	AmountCompany  *decimal.Decimal
	Currency       string
	Category       string
}

func (s Snapshot) ComparableAmount() decimal.Decimal {
	if s.AmountCompany != nil {
		return *s.AmountCompany
	}
	return s.AmountOriginal
}

func ToDataModel(r *Rule) *ruleDatamodel.Rule {
	conditions := make(ruleDatamodel.Conditions, len(r.Conditions))
	for i, c := range r.Conditions {
		conditions[i] = ruleDatamodel.Condition{Type: c.Type, Value: c.Value}
	}
	approvers := make(ruleDatamodel.Approvers, len(r.Approvers))
	for i, a := range r.Approvers {
		approvers[i] = ruleDatamodel.Approver{UserID: a.UserID, Sequence: a.Sequence}
	}
	return &ruleDatamodel.Rule{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		Name:       r.Name,
		Operator:   r.Operator,
		Conditions: conditions,
		Approvers:  approvers,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func FromDataModel(r *ruleDatamodel.Rule) *Rule {
	conditions := make([]Condition, len(r.Conditions))
	for i, c := range r.Conditions {
		conditions[i] = Condition{Type: c.Type, Value: c.Value}
	}
	approvers := make([]Approver, len(r.Approvers))
	for i, a := range r.Approvers {
		approvers[i] = Approver{UserID: a.UserID, Sequence: a.Sequence}
	}
	return &Rule{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		Name:       r.Name,
		Operator:   r.Operator,
		Conditions: conditions,
		Approvers:  approvers,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func FromDataModelSlice(rules []*ruleDatamodel.Rule) []*Rule {
	result := make([]*Rule, len(rules))
	for i, r := range rules {
		result[i] = FromDataModel(r)
	}
	return result
}
