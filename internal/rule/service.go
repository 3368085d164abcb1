package rule

import (
	"log/slog"

	errors "github.com/approveflow/expense-service/internal"
)

// Repository defines the data access methods for approval rules. All
// lookups are company scoped.
type Repository interface {
	Create(r *Rule) error
	GetByID(companyID, id int64) (*Rule, error)
	ListByCompany(companyID int64) ([]*Rule, error)
	Update(r *Rule) error
	Delete(companyID, id int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) CreateRule(companyID int64, dto CreateRuleDTO) (*Rule, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("rule validation failed", "error", err, "company_id", companyID)
		return nil, err
	}

	operator := dto.Operator
	if operator == "" {
		operator = OperatorOr
	}

	r := &Rule{
		CompanyID:  companyID,
		Name:       dto.Name,
		Operator:   operator,
		Conditions: conditionsFromDTO(dto.Conditions),
		Approvers:  approversFromDTO(dto.Approvers),
	}

	if err := s.repo.Create(r); err != nil {
		s.logger.Error("failed to create rule", "error", err, "company_id", companyID)
		return nil, err
	}

	s.logger.Info("approval rule created",
		"rule_id", r.ID,
		"company_id", companyID,
		"conditions", len(r.Conditions),
		"approvers", len(r.Approvers))

	return r, nil
}

func (s *Service) GetRule(companyID, ruleID int64) (*Rule, error) {
	r, err := s.repo.GetByID(companyID, ruleID)
	if err != nil {
		return nil, errors.ErrRuleNotFound
	}
	return r, nil
}

func (s *Service) ListRules(companyID int64) ([]*Rule, error) {
	rules, err := s.repo.ListByCompany(companyID)
	if err != nil {
		s.logger.Error("failed to list rules", "error", err, "company_id", companyID)
		return nil, err
	}
	return rules, nil
}

func (s *Service) UpdateRule(companyID, ruleID int64, dto UpdateRuleDTO) (*Rule, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetByID(companyID, ruleID)
	if err != nil {
		return nil, errors.ErrRuleNotFound
	}

	if dto.Name != nil {
		r.Name = *dto.Name
	}
	if dto.Operator != nil {
		r.Operator = *dto.Operator
	}
	if dto.Conditions != nil {
		r.Conditions = conditionsFromDTO(dto.Conditions)
	}
	if dto.Approvers != nil {
		r.Approvers = approversFromDTO(dto.Approvers)
	}

	if err := s.repo.Update(r); err != nil {
		s.logger.Error("failed to update rule", "error", err, "rule_id", ruleID)
		return nil, err
	}

	s.logger.Info("approval rule updated", "rule_id", ruleID, "company_id", companyID)
	return r, nil
}

// DeleteRule removes a rule unconditionally. Expenses already routed by the
// rule keep their approval_rule_id as an audit-only dangling reference.
func (s *Service) DeleteRule(companyID, ruleID int64) error {
	if _, err := s.repo.GetByID(companyID, ruleID); err != nil {
		return errors.ErrRuleNotFound
	}

	if err := s.repo.Delete(companyID, ruleID); err != nil {
		s.logger.Error("failed to delete rule", "error", err, "rule_id", ruleID)
		return err
	}

	s.logger.Info("approval rule deleted", "rule_id", ruleID, "company_id", companyID)
	return nil
}

func conditionsFromDTO(dtos []ConditionDTO) []Condition {
	conditions := make([]Condition, len(dtos))
	for i, c := range dtos {
		conditions[i] = Condition{Type: c.Type, Value: c.Value}
	}
	return conditions
}

func approversFromDTO(dtos []ApproverDTO) []Approver {
	approvers := make([]Approver, len(dtos))
	for i, a := range dtos {
		approvers[i] = Approver{UserID: a.UserID, Sequence: a.Sequence}
	}
	return approvers
}
