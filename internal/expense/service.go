package expense

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/auth"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
	"github.com/approveflow/expense-service/internal/core/events"
	"github.com/approveflow/expense-service/internal/currency"
	"github.com/approveflow/expense-service/internal/rule"
)

// Repository defines the persistence surface of the expense aggregate. All
// reads are company scoped so tenants can never see across each other.
type Repository interface {
	Create(e *Expense) error
	GetByID(companyID, id int64) (*Expense, error)
	Update(e *Expense) error
	// UpdateWithVersion persists a workflow transition only when the stored
	// version still matches the version the expense was loaded at, and bumps
	// it. A lost race returns ErrConcurrentUpdate.
	UpdateWithVersion(e *Expense) error
	Delete(companyID, id int64) error
	ListByEmployee(companyID, employeeID int64) ([]*Expense, error)
	ListActiveByCompany(companyID int64) ([]*Expense, error)
	ListByEmployees(companyID int64, employeeIDs []int64) ([]*Expense, error)
	ListByCompany(companyID int64, filter ListFilter) ([]*Expense, error)
}

// UserDirectory is the slice of the user store the workflow needs.
type UserDirectory interface {
	GetUserByID(id int64) (*userDatamodel.User, error)
	ListDirectReports(companyID, managerID int64) ([]*userDatamodel.User, error)
}

// CompanyDirectory resolves the company an expense normalizes into.
type CompanyDirectory interface {
	GetCompanyByID(id int64) (*companyDatamodel.Company, error)
}

// RuleSource lists the active approval rules of a company, oldest first.
type RuleSource interface {
	ListByCompany(companyID int64) ([]*rule.Rule, error)
}

type Service struct {
	repo      Repository
	users     UserDirectory
	companies CompanyDirectory
	rules     RuleSource
	converter currency.Converter
	eventBus  *events.EventBus
	logger    *slog.Logger
}

func NewService(
	repo Repository,
	users UserDirectory,
	companies CompanyDirectory,
	rules RuleSource,
	converter currency.Converter,
	eventBus *events.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		companies: companies,
		rules:     rules,
		converter: converter,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// CreateExpense records a new expense for the acting employee. The amount is
// normalized into the company currency on a best-effort basis: a conversion
// failure leaves the normalized amount absent and never blocks creation.
// With Submit set the expense skips the draft phase and enters the approval
// pipeline immediately.
func (s *Service) CreateExpense(ctx context.Context, actor *auth.Actor, dto CreateExpenseDTO) (*Expense, error) {
	parsed, appErr := dto.Validate()
	if appErr != nil {
		return nil, appErr
	}

	e := &Expense{
		EmployeeID:      actor.ID,
		CompanyID:       actor.CompanyID,
		Description:     dto.Description,
		Category:        dto.Category,
		AmountOriginal:  parsed.Amount,
		Currency:        dto.Currency,
		Status:          StatusDraft,
		ReceiptURL:      dto.ReceiptURL,
		ReceiptFileName: dto.ReceiptName,
		ExpenseDate:     parsed.ExpenseDate,
	}

	s.normalizeAmount(ctx, e)

	if dto.Submit {
		if err := s.attachChainAndSubmit(ctx, e, time.Now()); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "employee_id", actor.ID)
		return nil, errors.NewInternalError("failed to create expense", err)
	}

	if !e.IsDraft() {
		s.publishSubmitted(ctx, e)
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"employee_id", actor.ID,
		"status", e.Status,
		"amount", e.AmountOriginal.StringFixed(2),
		"currency", e.Currency)

	return e, nil
}

// SubmitDraft moves a draft into the approval pipeline. The chain is built
// from the rule set as it stands at submission time, not at creation time.
func (s *Service) SubmitDraft(ctx context.Context, actor *auth.Actor, expenseID int64) (*Expense, error) {
	e, err := s.getOwned(actor, expenseID)
	if err != nil {
		return nil, err
	}

	if err := s.attachChainAndSubmit(ctx, e, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWithVersion(e); err != nil {
		return nil, err
	}

	s.publishSubmitted(ctx, e)

	s.logger.Info("expense submitted",
		"expense_id", e.ID,
		"employee_id", actor.ID,
		"status", e.Status,
		"chain_steps", len(e.ApprovalWorkflow))

	return e, nil
}

// SubmitDecision applies an approve or reject decision by the acting user on
// the expense's active step. The optimistic version check on save guarantees
// at most one decision commits per step even under concurrent approvers.
func (s *Service) SubmitDecision(ctx context.Context, actor *auth.Actor, expenseID int64, dto DecisionDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.getForCompany(actor.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}

	if err := e.ApplyDecision(actor.ID, dto.Decision, dto.Comments, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWithVersion(e); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewExpenseDecided(e.ID, actor.ID, dto.Decision, e.Status))

	s.logger.Info("decision recorded",
		"expense_id", e.ID,
		"approver_id", actor.ID,
		"decision", dto.Decision,
		"status", e.Status)

	return e, nil
}

// OverrideDecision lets an admin force a status on any submitted expense.
// The override is appended to the chain as its own audit step.
func (s *Service) OverrideDecision(ctx context.Context, actor *auth.Actor, expenseID int64, dto OverrideDTO) (*Expense, error) {
	if !actor.IsAdmin() {
		return nil, errors.ErrAdminRequired
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.getForCompany(actor.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}

	if err := e.ApplyOverride(actor.ID, dto.Status, dto.Comments, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWithVersion(e); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewExpenseOverridden(e.ID, actor.ID, e.Status))

	s.logger.Warn("admin override applied",
		"expense_id", e.ID,
		"admin_id", actor.ID,
		"status", dto.Status)

	return e, nil
}

// GetExpense returns an expense visible to the actor: their own, one whose
// chain they hold a step of, a direct report's, or anything company-wide for
// admins. Invisible expenses report not-found rather than forbidden so their
// existence does not leak.
func (s *Service) GetExpense(ctx context.Context, actor *auth.Actor, expenseID int64) (*Expense, error) {
	e, err := s.getForCompany(actor.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}

	if e.EmployeeID == actor.ID || actor.IsAdmin() || e.IsApproverInChain(actor.ID) {
		return e, nil
	}

	owner, err := s.users.GetUserByID(e.EmployeeID)
	if err == nil && owner.ManagerID != nil && *owner.ManagerID == actor.ID {
		return e, nil
	}

	return nil, errors.ErrExpenseNotFound
}

// UpdateDraft replaces the mutable fields of a draft and re-runs currency
// normalization. Submitted expenses are immutable through this path.
func (s *Service) UpdateDraft(ctx context.Context, actor *auth.Actor, expenseID int64, dto UpdateExpenseDTO) (*Expense, error) {
	parsed, appErr := dto.Validate()
	if appErr != nil {
		return nil, appErr
	}

	e, err := s.getOwned(actor, expenseID)
	if err != nil {
		return nil, err
	}
	if !e.IsDraft() {
		return nil, errors.ErrNotDraft
	}

	e.Description = dto.Description
	e.Category = dto.Category
	e.AmountOriginal = parsed.Amount
	e.Currency = dto.Currency
	e.ExpenseDate = parsed.ExpenseDate
	e.ReceiptURL = dto.ReceiptURL
	e.ReceiptFileName = dto.ReceiptName
	e.AmountCompany = nil
	s.normalizeAmount(ctx, e)

	if err := s.repo.Update(e); err != nil {
		// the draft may have been submitted between the read and the write
		if err == errors.ErrNotDraft {
			return nil, err
		}
		s.logger.Error("failed to update draft", "error", err, "expense_id", expenseID)
		return nil, errors.NewInternalError("failed to update expense", err)
	}

	return e, nil
}

// DeleteDraft removes a draft. Anything already submitted stays for audit.
func (s *Service) DeleteDraft(ctx context.Context, actor *auth.Actor, expenseID int64) error {
	e, err := s.getOwned(actor, expenseID)
	if err != nil {
		return err
	}
	if !e.IsDraft() {
		return errors.ErrNotDraft
	}

	if err := s.repo.Delete(actor.CompanyID, expenseID); err != nil {
		if err == errors.ErrNotDraft {
			return err
		}
		s.logger.Error("failed to delete draft", "error", err, "expense_id", expenseID)
		return errors.NewInternalError("failed to delete expense", err)
	}

	s.logger.Info("draft deleted", "expense_id", expenseID, "employee_id", actor.ID)
	return nil
}

func (s *Service) ListMyExpenses(ctx context.Context, actor *auth.Actor) ([]*Expense, error) {
	expenses, err := s.repo.ListByEmployee(actor.CompanyID, actor.ID)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "employee_id", actor.ID)
		return nil, errors.NewInternalError("failed to list expenses", err)
	}
	return expenses, nil
}

// ListPendingForApprover returns the actor's approval inbox: every in-flight
// expense whose active step is theirs. Held-but-not-yet-active steps are
// excluded; the approver sees the expense only once the chain reaches them.
func (s *Service) ListPendingForApprover(ctx context.Context, actor *auth.Actor) ([]*Expense, error) {
	active, err := s.repo.ListActiveByCompany(actor.CompanyID)
	if err != nil {
		s.logger.Error("failed to list active expenses", "error", err, "company_id", actor.CompanyID)
		return nil, errors.NewInternalError("failed to list expenses", err)
	}

	inbox := make([]*Expense, 0, len(active))
	for _, e := range active {
		step, err := e.PendingStep()
		if err != nil {
			continue
		}
		if step.ApproverID == actor.ID {
			inbox = append(inbox, e)
		}
	}
	return inbox, nil
}

// ListTeamExpenses returns the submitted expenses of the actor's direct
// reports. Drafts stay private to their owner.
func (s *Service) ListTeamExpenses(ctx context.Context, actor *auth.Actor) ([]*Expense, error) {
	if !actor.IsManager() {
		return nil, errors.ErrManagerRequired
	}

	reports, err := s.users.ListDirectReports(actor.CompanyID, actor.ID)
	if err != nil {
		s.logger.Error("failed to list direct reports", "error", err, "manager_id", actor.ID)
		return nil, errors.NewInternalError("failed to list team expenses", err)
	}
	if len(reports) == 0 {
		return []*Expense{}, nil
	}

	ids := make([]int64, len(reports))
	for i, u := range reports {
		ids[i] = u.ID
	}

	expenses, err := s.repo.ListByEmployees(actor.CompanyID, ids)
	if err != nil {
		s.logger.Error("failed to list team expenses", "error", err, "manager_id", actor.ID)
		return nil, errors.NewInternalError("failed to list team expenses", err)
	}

	visible := make([]*Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.IsDraft() {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// AdminListExpenses returns company-wide expenses with optional filters.
func (s *Service) AdminListExpenses(ctx context.Context, actor *auth.Actor, filter ListFilter) ([]*Expense, error) {
	if !actor.IsAdmin() {
		return nil, errors.ErrAdminRequired
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	expenses, err := s.repo.ListByCompany(actor.CompanyID, filter)
	if err != nil {
		s.logger.Error("failed to list company expenses", "error", err, "company_id", actor.CompanyID)
		return nil, errors.NewInternalError("failed to list expenses", err)
	}
	return expenses, nil
}

// normalizeAmount converts the original amount into the company currency.
// Degraded conversion is logged and left absent; rule thresholds then fall
// back to comparing the original amount.
func (s *Service) normalizeAmount(ctx context.Context, e *Expense) {
	company, err := s.companies.GetCompanyByID(e.CompanyID)
	if err != nil {
		s.logger.Error("failed to resolve company for normalization", "error", err, "company_id", e.CompanyID)
		return
	}

	if e.Currency == company.DefaultCurrency {
		amount := e.AmountOriginal
		e.AmountCompany = &amount
		return
	}

	convertCtx, cancel := errors.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	converted, ok := s.converter.Convert(convertCtx, e.AmountOriginal, e.Currency, company.DefaultCurrency)
	if !ok {
		s.logger.Warn("currency conversion unavailable",
			"from", e.Currency,
			"to", company.DefaultCurrency,
			"expense_employee", e.EmployeeID)
		return
	}

	rounded := converted.Round(2)
	e.AmountCompany = &rounded
}

func (s *Service) attachChainAndSubmit(ctx context.Context, e *Expense, now time.Time) error {
	employee, err := s.users.GetUserByID(e.EmployeeID)
	if err != nil {
		return errors.ErrUserNotFound
	}

	rules, err := s.rules.ListByCompany(e.CompanyID)
	if err != nil {
		s.logger.Error("failed to load approval rules", "error", err, "company_id", e.CompanyID)
		return errors.NewInternalError("failed to build approval chain", err)
	}

	chain, ruleID := BuildChain(rules, employee, e.RuleSnapshot())
	return e.Submit(chain, ruleID, now)
}

func (s *Service) publishSubmitted(ctx context.Context, e *Expense) {
	s.eventBus.Publish(ctx, events.NewExpenseSubmitted(e.ID, e.EmployeeID, e.CompanyID, len(e.ApprovalWorkflow)))
}

func (s *Service) getForCompany(companyID, expenseID int64) (*Expense, error) {
	e, err := s.repo.GetByID(companyID, expenseID)
	if err != nil {
		return nil, errors.ErrExpenseNotFound
	}
	return e, nil
}

func (s *Service) getOwned(actor *auth.Actor, expenseID int64) (*Expense, error) {
	e, err := s.getForCompany(actor.CompanyID, expenseID)
	if err != nil {
		return nil, err
	}
	if e.EmployeeID != actor.ID {
		return nil, errors.ErrExpenseNotFound
	}
	return e, nil
}
