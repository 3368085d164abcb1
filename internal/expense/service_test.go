package expense_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/auth"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
	"github.com/approveflow/expense-service/internal/core/events"
	"github.com/approveflow/expense-service/internal/expense"
	"github.com/approveflow/expense-service/internal/rule"
)

type mockExpenseRepository struct {
	expenses    map[int64]*expense.Expense
	nextID      int64
	saveErr     error
	versionErrs int
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{
		expenses: make(map[int64]*expense.Expense),
		nextID:   1,
	}
}

func (m *mockExpenseRepository) Create(e *expense.Expense) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	e.ID = m.nextID
	m.nextID++
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepository) GetByID(companyID, id int64) (*expense.Expense, error) {
	e, ok := m.expenses[id]
	if !ok || e.CompanyID != companyID {
		return nil, errors.ErrExpenseNotFound
	}
	cp := *e
	cp.ApprovalWorkflow = append([]expense.ApprovalStep(nil), e.ApprovalWorkflow...)
	return &cp, nil
}

func (m *mockExpenseRepository) Update(e *expense.Expense) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepository) UpdateWithVersion(e *expense.Expense) error {
	if m.versionErrs > 0 {
		m.versionErrs--
		return errors.ErrConcurrentUpdate
	}
	stored, ok := m.expenses[e.ID]
	if !ok || stored.Version != e.Version {
		return errors.ErrConcurrentUpdate
	}
	e.Version++
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepository) Delete(companyID, id int64) error {
	delete(m.expenses, id)
	return nil
}

func (m *mockExpenseRepository) ListByEmployee(companyID, employeeID int64) ([]*expense.Expense, error) {
	var result []*expense.Expense
	for _, e := range m.expenses {
		if e.CompanyID == companyID && e.EmployeeID == employeeID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockExpenseRepository) ListActiveByCompany(companyID int64) ([]*expense.Expense, error) {
	var result []*expense.Expense
	for _, e := range m.expenses {
		if e.CompanyID == companyID && (e.Status == expense.StatusPending || e.Status == expense.StatusProcessing) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockExpenseRepository) ListByEmployees(companyID int64, employeeIDs []int64) ([]*expense.Expense, error) {
	var result []*expense.Expense
	for _, e := range m.expenses {
		if e.CompanyID != companyID {
			continue
		}
		for _, id := range employeeIDs {
			if e.EmployeeID == id {
				result = append(result, e)
				break
			}
		}
	}
	return result, nil
}

func (m *mockExpenseRepository) ListByCompany(companyID int64, filter expense.ListFilter) ([]*expense.Expense, error) {
	var result []*expense.Expense
	for _, e := range m.expenses {
		if e.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.EmployeeID != 0 && e.EmployeeID != filter.EmployeeID {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

type mockUserDirectory struct {
	users map[int64]*userDatamodel.User
}

func (m *mockUserDirectory) GetUserByID(id int64) (*userDatamodel.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserDirectory) ListDirectReports(companyID, managerID int64) ([]*userDatamodel.User, error) {
	var result []*userDatamodel.User
	for _, u := range m.users {
		if u.CompanyID == companyID && u.ManagerID != nil && *u.ManagerID == managerID {
			result = append(result, u)
		}
	}
	return result, nil
}

type mockCompanyDirectory struct {
	company *companyDatamodel.Company
}

func (m *mockCompanyDirectory) GetCompanyByID(id int64) (*companyDatamodel.Company, error) {
	if m.company == nil || m.company.ID != id {
		return nil, errors.ErrCompanyNotFound
	}
	return m.company, nil
}

type mockRuleSource struct {
	rules []*rule.Rule
}

func (m *mockRuleSource) ListByCompany(companyID int64) ([]*rule.Rule, error) {
	return m.rules, nil
}

type mockConverter struct {
	rate  decimal.Decimal
	ok    bool
	calls int
}

func (m *mockConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	m.calls++
	if !m.ok {
		return decimal.Decimal{}, false
	}
	return amount.Mul(m.rate), true
}

var _ = Describe("ExpenseService", func() {
	var (
		repo      *mockExpenseRepository
		users     *mockUserDirectory
		companies *mockCompanyDirectory
		rules     *mockRuleSource
		converter *mockConverter
		service   *expense.Service
		ctx       context.Context

		employeeActor *auth.Actor
		managerActor  *auth.Actor
		adminActor    *auth.Actor
		outsiderActor *auth.Actor
	)

	managerID := int64(20)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockExpenseRepository()
		users = &mockUserDirectory{users: map[int64]*userDatamodel.User{
			10: {ID: 10, CompanyID: 1, Role: "employee", ManagerID: &managerID},
			20: {ID: 20, CompanyID: 1, Role: "manager"},
			40: {ID: 40, CompanyID: 1, Role: "admin"},
			99: {ID: 99, CompanyID: 1, Role: "employee"},
		}}
		companies = &mockCompanyDirectory{company: &companyDatamodel.Company{
			ID: 1, Name: "Acme", DefaultCurrency: "USD",
		}}
		rules = &mockRuleSource{}
		converter = &mockConverter{rate: decimal.RequireFromString("1.1"), ok: true}

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		eventBus := events.NewEventBus(logger)
		service = expense.NewService(repo, users, companies, rules, converter, eventBus, logger)

		employeeActor = &auth.Actor{ID: 10, CompanyID: 1, Role: auth.RoleEmployee}
		managerActor = &auth.Actor{ID: 20, CompanyID: 1, Role: auth.RoleManager}
		adminActor = &auth.Actor{ID: 40, CompanyID: 1, Role: auth.RoleAdmin}
		outsiderActor = &auth.Actor{ID: 99, CompanyID: 1, Role: auth.RoleEmployee}
	})

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	createDTO := func(submit bool) expense.CreateExpenseDTO {
		return expense.CreateExpenseDTO{
			Description: "client dinner",
			Category:    "meals",
			Amount:      "120.00",
			Currency:    "USD",
			ExpenseDate: yesterday,
			Submit:      submit,
		}
	}

	Describe("CreateExpense", func() {
		It("creates a draft with the normalized amount in company currency", func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(false))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusDraft))
			Expect(e.AmountCompany).NotTo(BeNil())
			Expect(e.AmountCompany.Equal(decimal.RequireFromString("120.00"))).To(BeTrue())
			// same currency needs no conversion call
			Expect(converter.calls).To(BeZero())
		})

		It("converts foreign-currency amounts", func() {
			dto := createDTO(false)
			dto.Currency = "EUR"

			e, err := service.CreateExpense(ctx, employeeActor, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(converter.calls).To(Equal(1))
			Expect(e.AmountCompany).NotTo(BeNil())
			Expect(e.AmountCompany.Equal(decimal.RequireFromString("132.00"))).To(BeTrue())
		})

		It("creates the expense even when conversion is unavailable", func() {
			converter.ok = false
			dto := createDTO(false)
			dto.Currency = "EUR"

			e, err := service.CreateExpense(ctx, employeeActor, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.AmountCompany).To(BeNil())
			Expect(e.Status).To(Equal(expense.StatusDraft))
		})

		It("submits immediately when asked, routing to the manager", func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(true))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusPending))
			Expect(e.ApprovalWorkflow).To(HaveLen(1))
			Expect(e.ApprovalWorkflow[0].ApproverID).To(Equal(managerID))
		})

		It("auto-approves a managerless employee with no matching rule", func() {
			orphanActor := &auth.Actor{ID: 99, CompanyID: 1, Role: auth.RoleEmployee}

			e, err := service.CreateExpense(ctx, orphanActor, createDTO(true))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusApproved))
			Expect(e.ApprovalWorkflow).To(BeEmpty())
		})

		It("rejects invalid amounts", func() {
			dto := createDTO(false)
			dto.Amount = "-5.00"

			_, err := service.CreateExpense(ctx, employeeActor, dto)

			Expect(err).To(HaveOccurred())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})
	})

	Describe("SubmitDraft", func() {
		var draftID int64

		BeforeEach(func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(false))
			Expect(err).NotTo(HaveOccurred())
			draftID = e.ID
		})

		It("moves the draft into the pipeline", func() {
			e, err := service.SubmitDraft(ctx, employeeActor, draftID)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusPending))
		})

		It("builds the chain from a matching rule", func() {
			rules.rules = []*rule.Rule{{
				ID:         3,
				Operator:   rule.OperatorOr,
				Conditions: []rule.Condition{amountCondition("100")},
				Approvers: []rule.Approver{
					{UserID: 20, Sequence: 1},
					{UserID: 40, Sequence: 2},
				},
			}}

			e, err := service.SubmitDraft(ctx, employeeActor, draftID)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.ApprovalWorkflow).To(HaveLen(2))
			Expect(*e.ApprovalRuleID).To(Equal(int64(3)))
		})

		It("hides other users' drafts", func() {
			_, err := service.SubmitDraft(ctx, outsiderActor, draftID)

			Expect(err).To(Equal(errors.ErrExpenseNotFound))
		})

		It("refuses a double submit", func() {
			_, err := service.SubmitDraft(ctx, employeeActor, draftID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.SubmitDraft(ctx, employeeActor, draftID)

			Expect(err).To(Equal(errors.ErrAlreadySubmitted))
		})
	})

	Describe("SubmitDecision", func() {
		var expenseID int64

		BeforeEach(func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(true))
			Expect(err).NotTo(HaveOccurred())
			expenseID = e.ID
		})

		It("lets the active approver approve", func() {
			e, err := service.SubmitDecision(ctx, managerActor, expenseID, expense.DecisionDTO{
				Decision: expense.DecisionApproved,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusApproved))
		})

		It("refuses everyone but the active approver", func() {
			_, err := service.SubmitDecision(ctx, outsiderActor, expenseID, expense.DecisionDTO{
				Decision: expense.DecisionApproved,
			})

			Expect(err).To(Equal(errors.ErrNotStepApprover))
		})

		It("surfaces a version conflict when a concurrent decision wins", func() {
			repo.versionErrs = 1

			_, err := service.SubmitDecision(ctx, managerActor, expenseID, expense.DecisionDTO{
				Decision: expense.DecisionApproved,
			})

			Expect(err).To(Equal(errors.ErrConcurrentUpdate))

			// the retry against fresh state succeeds
			_, err = service.SubmitDecision(ctx, managerActor, expenseID, expense.DecisionDTO{
				Decision: expense.DecisionApproved,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects decisions on settled expenses", func() {
			_, err := service.SubmitDecision(ctx, managerActor, expenseID, expense.DecisionDTO{
				Decision: expense.DecisionRejected,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.SubmitDecision(ctx, managerActor, expenseID, expense.DecisionDTO{
				Decision: expense.DecisionApproved,
			})

			Expect(err).To(Equal(errors.ErrNoPendingStep))
		})
	})

	Describe("OverrideDecision", func() {
		var expenseID int64

		BeforeEach(func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(true))
			Expect(err).NotTo(HaveOccurred())
			expenseID = e.ID
		})

		It("requires the admin role", func() {
			_, err := service.OverrideDecision(ctx, managerActor, expenseID, expense.OverrideDTO{
				Status: expense.StatusApproved,
			})

			Expect(err).To(Equal(errors.ErrAdminRequired))
		})

		It("forces the outcome and audits the override", func() {
			e, err := service.OverrideDecision(ctx, adminActor, expenseID, expense.OverrideDTO{
				Status: expense.StatusRejected,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusRejected))
			last := e.ApprovalWorkflow[len(e.ApprovalWorkflow)-1]
			Expect(last.ApproverID).To(Equal(adminActor.ID))
		})

		It("can reopen a settled expense", func() {
			_, err := service.OverrideDecision(ctx, adminActor, expenseID, expense.OverrideDTO{
				Status: expense.StatusRejected,
			})
			Expect(err).NotTo(HaveOccurred())

			e, err := service.OverrideDecision(ctx, adminActor, expenseID, expense.OverrideDTO{
				Status: expense.StatusPending,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusPending))
		})
	})

	Describe("GetExpense", func() {
		var expenseID int64

		BeforeEach(func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(true))
			Expect(err).NotTo(HaveOccurred())
			expenseID = e.ID
		})

		It("is visible to the owner", func() {
			_, err := service.GetExpense(ctx, employeeActor, expenseID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("is visible to a chain approver", func() {
			_, err := service.GetExpense(ctx, managerActor, expenseID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("is visible to an admin", func() {
			_, err := service.GetExpense(ctx, adminActor, expenseID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports not-found to unrelated users", func() {
			_, err := service.GetExpense(ctx, outsiderActor, expenseID)
			Expect(err).To(Equal(errors.ErrExpenseNotFound))
		})
	})

	Describe("ListPendingForApprover", func() {
		It("returns only expenses whose active step is the actor's", func() {
			rules.rules = []*rule.Rule{{
				ID:         3,
				Conditions: []rule.Condition{amountCondition("100")},
				Approvers: []rule.Approver{
					{UserID: 20, Sequence: 1},
					{UserID: 40, Sequence: 2},
				},
			}}

			e, err := service.CreateExpense(ctx, employeeActor, createDTO(true))
			Expect(err).NotTo(HaveOccurred())

			inbox, err := service.ListPendingForApprover(ctx, managerActor)
			Expect(err).NotTo(HaveOccurred())
			Expect(inbox).To(HaveLen(1))

			// second approver sees nothing until the chain reaches them
			adminInbox, err := service.ListPendingForApprover(ctx, adminActor)
			Expect(err).NotTo(HaveOccurred())
			Expect(adminInbox).To(BeEmpty())

			_, err = service.SubmitDecision(ctx, managerActor, e.ID, expense.DecisionDTO{
				Decision: expense.DecisionApproved,
			})
			Expect(err).NotTo(HaveOccurred())

			adminInbox, err = service.ListPendingForApprover(ctx, adminActor)
			Expect(err).NotTo(HaveOccurred())
			Expect(adminInbox).To(HaveLen(1))
		})
	})

	Describe("ListTeamExpenses", func() {
		It("requires the manager role", func() {
			_, err := service.ListTeamExpenses(ctx, employeeActor)
			Expect(err).To(Equal(errors.ErrManagerRequired))
		})

		It("excludes drafts from the team view", func() {
			_, err := service.CreateExpense(ctx, employeeActor, createDTO(false))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CreateExpense(ctx, employeeActor, createDTO(true))
			Expect(err).NotTo(HaveOccurred())

			team, err := service.ListTeamExpenses(ctx, managerActor)

			Expect(err).NotTo(HaveOccurred())
			Expect(team).To(HaveLen(1))
			Expect(team[0].Status).NotTo(Equal(expense.StatusDraft))
		})
	})

	Describe("AdminListExpenses", func() {
		It("requires the admin role", func() {
			_, err := service.AdminListExpenses(ctx, managerActor, expense.ListFilter{})
			Expect(err).To(Equal(errors.ErrAdminRequired))
		})

		It("filters by status", func() {
			_, err := service.CreateExpense(ctx, employeeActor, createDTO(false))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CreateExpense(ctx, employeeActor, createDTO(true))
			Expect(err).NotTo(HaveOccurred())

			pending, err := service.AdminListExpenses(ctx, adminActor, expense.ListFilter{
				Status: expense.StatusPending,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
		})

		It("rejects unknown status filters", func() {
			_, err := service.AdminListExpenses(ctx, adminActor, expense.ListFilter{Status: "settled"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateDraft and DeleteDraft", func() {
		var draftID int64

		BeforeEach(func() {
			e, err := service.CreateExpense(ctx, employeeActor, createDTO(false))
			Expect(err).NotTo(HaveOccurred())
			draftID = e.ID
		})

		It("re-normalizes the amount on update", func() {
			e, err := service.UpdateDraft(ctx, employeeActor, draftID, expense.UpdateExpenseDTO{
				Description: "client dinner",
				Category:    "meals",
				Amount:      "200.00",
				Currency:    "EUR",
				ExpenseDate: yesterday,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(e.AmountCompany).NotTo(BeNil())
			Expect(e.AmountCompany.Equal(decimal.RequireFromString("220.00"))).To(BeTrue())
		})

		It("refuses to modify submitted expenses", func() {
			_, err := service.SubmitDraft(ctx, employeeActor, draftID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.UpdateDraft(ctx, employeeActor, draftID, expense.UpdateExpenseDTO{
				Description: "x",
				Category:    "meals",
				Amount:      "1.00",
				Currency:    "USD",
				ExpenseDate: yesterday,
			})
			Expect(err).To(Equal(errors.ErrNotDraft))

			err = service.DeleteDraft(ctx, employeeActor, draftID)
			Expect(err).To(Equal(errors.ErrNotDraft))
		})

		It("deletes drafts", func() {
			Expect(service.DeleteDraft(ctx, employeeActor, draftID)).To(Succeed())

			_, err := service.GetExpense(ctx, employeeActor, draftID)
			Expect(err).To(Equal(errors.ErrExpenseNotFound))
		})
	})
})
