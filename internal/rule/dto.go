package rule

import (
	"encoding/json"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/core/common/validation"
)

type ConditionDTO struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type ApproverDTO struct {
	UserID   int64 `json:"user_id"`
	Sequence int   `json:"sequence"`
}

type CreateRuleDTO struct {
	Name       string         `json:"name"`
	Operator   string         `json:"operator"`
	Conditions []ConditionDTO `json:"conditions"`
	Approvers  []ApproverDTO  `json:"approvers"`
}

func (dto CreateRuleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	if dto.Operator != "" {
		v.Field("operator", dto.Operator).OneOf(OperatorAnd, OperatorOr)
	}
	if err := v.Validate(); err != nil {
		return err
	}

	seen := 0
	for _, a := range dto.Approvers {
		if a.UserID <= 0 {
			return errors.NewValidationFieldError("approvers", "approver user_id must be positive", errors.ErrCodeValidationFailed)
		}
		if a.Sequence < 1 {
			return errors.NewValidationFieldError("approvers", "approver sequence must start at 1", errors.ErrCodeValidationFailed)
		}
		if a.Sequence < seen {
			return errors.NewValidationFieldError("approvers", "approver sequences must be non-decreasing", errors.ErrCodeValidationFailed)
		}
		seen = a.Sequence
	}
	return nil
}

type UpdateRuleDTO struct {
	Name       *string        `json:"name,omitempty"`
	Operator   *string        `json:"operator,omitempty"`
	Conditions []ConditionDTO `json:"conditions,omitempty"`
	Approvers  []ApproverDTO  `json:"approvers,omitempty"`
}

func (dto UpdateRuleDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(200)
	}
	if dto.Operator != nil {
		v.Field("operator", *dto.Operator).OneOf(OperatorAnd, OperatorOr)
	}
	return errOrNil(v.Validate())
}

// errOrNil avoids a typed-nil *AppError escaping as a non-nil error.
func errOrNil(err *errors.AppError) error {
	if err == nil {
		return nil
	}
	return err
}
