package expense_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
	"github.com/approveflow/expense-service/internal/expense"
	"github.com/approveflow/expense-service/internal/rule"
)

func amountCondition(threshold string) rule.Condition {
	v, _ := json.Marshal(threshold)
	return rule.Condition{Type: rule.ConditionAmountThreshold, Value: v}
}

func categoryCondition(category string) rule.Condition {
	v, _ := json.Marshal(category)
	return rule.Condition{Type: rule.ConditionCategory, Value: v}
}

var _ = Describe("BuildChain", func() {
	managerID := int64(20)

	employee := func() *userDatamodel.User {
		return &userDatamodel.User{ID: 10, CompanyID: 1, ManagerID: &managerID}
	}

	snapshot := func(amount string) rule.Snapshot {
		return rule.Snapshot{
			AmountOriginal: decimal.RequireFromString(amount),
			Currency:       "USD",
			Category:       "travel",
		}
	}

	It("uses the first matching rule's approvers ordered by sequence", func() {
		rules := []*rule.Rule{
			{
				ID:         5,
				Operator:   rule.OperatorOr,
				Conditions: []rule.Condition{amountCondition("1000")},
				Approvers: []rule.Approver{
					{UserID: 30, Sequence: 2},
					{UserID: 20, Sequence: 1},
				},
			},
		}

		chain, ruleID := expense.BuildChain(rules, employee(), snapshot("1500.00"))

		Expect(ruleID).NotTo(BeNil())
		Expect(*ruleID).To(Equal(int64(5)))
		Expect(chain).To(HaveLen(2))
		Expect(chain[0].ApproverID).To(Equal(int64(20)))
		Expect(chain[1].ApproverID).To(Equal(int64(30)))
		for _, step := range chain {
			Expect(step.Status).To(Equal(expense.StepPending))
		}
	})

	It("tries rules in order and stops at the first match", func() {
		rules := []*rule.Rule{
			{
				ID:         1,
				Conditions: []rule.Condition{categoryCondition("meals")},
				Approvers:  []rule.Approver{{UserID: 50, Sequence: 1}},
			},
			{
				ID:         2,
				Conditions: []rule.Condition{amountCondition("100")},
				Approvers:  []rule.Approver{{UserID: 60, Sequence: 1}},
			},
			{
				ID:         3,
				Conditions: []rule.Condition{amountCondition("100")},
				Approvers:  []rule.Approver{{UserID: 70, Sequence: 1}},
			},
		}

		chain, ruleID := expense.BuildChain(rules, employee(), snapshot("500.00"))

		Expect(*ruleID).To(Equal(int64(2)))
		Expect(chain).To(HaveLen(1))
		Expect(chain[0].ApproverID).To(Equal(int64(60)))
	})

	It("falls back to the manager when no rule matches", func() {
		rules := []*rule.Rule{
			{
				ID:         1,
				Conditions: []rule.Condition{amountCondition("1000")},
				Approvers:  []rule.Approver{{UserID: 50, Sequence: 1}},
			},
		}

		chain, ruleID := expense.BuildChain(rules, employee(), snapshot("200.00"))

		Expect(ruleID).To(BeNil())
		Expect(chain).To(HaveLen(1))
		Expect(chain[0].ApproverID).To(Equal(managerID))
	})

	It("returns an empty chain for a managerless employee with no matching rule", func() {
		orphan := &userDatamodel.User{ID: 10, CompanyID: 1}

		chain, ruleID := expense.BuildChain(nil, orphan, snapshot("200.00"))

		Expect(ruleID).To(BeNil())
		Expect(chain).To(BeEmpty())
	})

	It("ignores rules with no conditions", func() {
		rules := []*rule.Rule{
			{ID: 1, Approvers: []rule.Approver{{UserID: 50, Sequence: 1}}},
		}

		chain, ruleID := expense.BuildChain(rules, employee(), snapshot("5000.00"))

		Expect(ruleID).To(BeNil())
		Expect(chain[0].ApproverID).To(Equal(managerID))
	})
})
