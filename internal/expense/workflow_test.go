package expense_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/expense"
)

func TestExpense(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Suite")
}

func draftExpense() *expense.Expense {
	return &expense.Expense{
		ID:             1,
		EmployeeID:     10,
		CompanyID:      1,
		Description:    "client dinner",
		Category:       "meals",
		AmountOriginal: decimal.RequireFromString("120.00"),
		Currency:       "USD",
		Status:         expense.StatusDraft,
		ExpenseDate:    time.Now().AddDate(0, 0, -1),
	}
}

func twoStepChain() []expense.ApprovalStep {
	return []expense.ApprovalStep{
		{ApproverID: 20, Sequence: 1, Status: expense.StepPending},
		{ApproverID: 30, Sequence: 2, Status: expense.StepPending},
	}
}

var _ = Describe("Workflow", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Now()
	})

	Describe("Submit", func() {
		It("moves a draft to pending with the chain attached", func() {
			e := draftExpense()

			err := e.Submit(twoStepChain(), nil, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusPending))
			Expect(e.ApprovalWorkflow).To(HaveLen(2))
			Expect(e.CurrentApproverIndex).To(Equal(0))
			Expect(e.SubmittedAt).NotTo(BeNil())
		})

		It("auto-approves when the chain is empty", func() {
			e := draftExpense()

			err := e.Submit(nil, nil, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusApproved))
		})

		It("records the rule that routed the expense", func() {
			e := draftExpense()
			ruleID := int64(7)

			err := e.Submit(twoStepChain(), &ruleID, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.ApprovalRuleID).To(Equal(&ruleID))
		})

		It("rejects a second submission", func() {
			e := draftExpense()
			Expect(e.Submit(twoStepChain(), nil, now)).To(Succeed())

			err := e.Submit(twoStepChain(), nil, now)

			Expect(err).To(Equal(errors.ErrAlreadySubmitted))
		})

		It("rejects submission of a terminal expense", func() {
			e := draftExpense()
			e.Status = expense.StatusRejected

			err := e.Submit(twoStepChain(), nil, now)

			Expect(err).To(Equal(errors.ErrAlreadySubmitted))
		})
	})

	Describe("ApplyDecision", func() {
		var e *expense.Expense

		BeforeEach(func() {
			e = draftExpense()
			Expect(e.Submit(twoStepChain(), nil, now)).To(Succeed())
		})

		It("advances to processing after a non-final approval", func() {
			err := e.ApplyDecision(20, expense.DecisionApproved, nil, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusProcessing))
			Expect(e.CurrentApproverIndex).To(Equal(1))
			Expect(e.ApprovalWorkflow[0].Status).To(Equal(expense.StepApproved))
			Expect(e.ApprovalWorkflow[0].ActedAt).NotTo(BeNil())
			Expect(e.ApprovalWorkflow[1].Status).To(Equal(expense.StepPending))
		})

		It("terminates as approved after the final approval", func() {
			Expect(e.ApplyDecision(20, expense.DecisionApproved, nil, now)).To(Succeed())

			err := e.ApplyDecision(30, expense.DecisionApproved, nil, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusApproved))
			Expect(e.CurrentApproverIndex).To(Equal(2))
		})

		It("terminates the whole chain on rejection", func() {
			comment := "no receipt"

			err := e.ApplyDecision(20, expense.DecisionRejected, &comment, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusRejected))
			Expect(e.ApprovalWorkflow[0].Status).To(Equal(expense.StepRejected))
			Expect(e.ApprovalWorkflow[0].Comments).To(Equal(&comment))
			// later steps stay untouched
			Expect(e.ApprovalWorkflow[1].Status).To(Equal(expense.StepPending))
			Expect(e.CurrentApproverIndex).To(Equal(0))
		})

		It("refuses decisions from a later-step approver", func() {
			err := e.ApplyDecision(30, expense.DecisionApproved, nil, now)

			Expect(err).To(Equal(errors.ErrNotStepApprover))
			Expect(e.Status).To(Equal(expense.StatusPending))
		})

		It("refuses decisions from users outside the chain", func() {
			err := e.ApplyDecision(99, expense.DecisionApproved, nil, now)

			Expect(err).To(Equal(errors.ErrNotStepApprover))
		})

		It("refuses decisions on a rejected expense", func() {
			Expect(e.ApplyDecision(20, expense.DecisionRejected, nil, now)).To(Succeed())

			err := e.ApplyDecision(30, expense.DecisionApproved, nil, now)

			Expect(err).To(Equal(errors.ErrNoPendingStep))
		})

		It("refuses decisions once the chain is exhausted", func() {
			Expect(e.ApplyDecision(20, expense.DecisionApproved, nil, now)).To(Succeed())
			Expect(e.ApplyDecision(30, expense.DecisionApproved, nil, now)).To(Succeed())

			err := e.ApplyDecision(30, expense.DecisionApproved, nil, now)

			Expect(err).To(Equal(errors.ErrNoPendingStep))
		})

		It("refuses decisions on drafts", func() {
			d := draftExpense()

			err := d.ApplyDecision(20, expense.DecisionApproved, nil, now)

			Expect(err).To(Equal(errors.ErrNoPendingStep))
		})

		It("rejects malformed decision values", func() {
			err := e.ApplyDecision(20, "maybe", nil, now)

			Expect(err).To(HaveOccurred())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidDecision))
			Expect(e.ApprovalWorkflow[0].Status).To(Equal(expense.StepPending))
		})

		It("reports an invariant violation for a corrupted cursor", func() {
			e.CurrentApproverIndex = 5

			err := e.ApplyDecision(20, expense.DecisionApproved, nil, now)

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeInvariant))
		})
	})

	Describe("ApplyOverride", func() {
		var e *expense.Expense

		BeforeEach(func() {
			e = draftExpense()
			Expect(e.Submit(twoStepChain(), nil, now)).To(Succeed())
		})

		It("forces approval and appends a synthetic step", func() {
			comment := "CEO travel, pre-agreed"

			err := e.ApplyOverride(40, expense.StatusApproved, &comment, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusApproved))
			Expect(e.ApprovalWorkflow).To(HaveLen(3))
			last := e.ApprovalWorkflow[2]
			Expect(last.ApproverID).To(Equal(int64(40)))
			Expect(last.Status).To(Equal(expense.StepApproved))
			Expect(last.Comments).To(Equal(&comment))
		})

		It("leaves the cursor where the regular flow parked it", func() {
			Expect(e.ApplyDecision(20, expense.DecisionApproved, nil, now)).To(Succeed())

			Expect(e.ApplyOverride(40, expense.StatusRejected, nil, now)).To(Succeed())

			Expect(e.CurrentApproverIndex).To(Equal(1))
			Expect(e.Status).To(Equal(expense.StatusRejected))
		})

		It("can reverse an already-terminal outcome", func() {
			Expect(e.ApplyDecision(20, expense.DecisionRejected, nil, now)).To(Succeed())

			err := e.ApplyOverride(40, expense.StatusApproved, nil, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusApproved))
		})

		It("can reopen a settled expense back to pending", func() {
			Expect(e.ApplyDecision(20, expense.DecisionRejected, nil, now)).To(Succeed())

			err := e.ApplyOverride(40, expense.StatusPending, nil, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusPending))
			Expect(e.ApprovalWorkflow).To(HaveLen(3))
			Expect(e.ApprovalWorkflow[2].Status).To(Equal(expense.StepPending))
			Expect(e.CurrentApproverIndex).To(Equal(0))
		})

		It("refuses overrides on drafts", func() {
			d := draftExpense()

			err := d.ApplyOverride(40, expense.StatusApproved, nil, now)

			Expect(err).To(Equal(errors.ErrNoPendingStep))
		})

		It("rejects malformed status values", func() {
			err := e.ApplyOverride(40, "forced", nil, now)

			Expect(err).To(HaveOccurred())
			Expect(e.ApprovalWorkflow).To(HaveLen(2))
		})
	})
})
