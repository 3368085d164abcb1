package rule_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/approveflow/expense-service/internal/rule"
)

func TestRule(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rule Suite")
}

func condition(condType string, value interface{}) rule.Condition {
	raw, err := json.Marshal(value)
	Expect(err).NotTo(HaveOccurred())
	return rule.Condition{Type: condType, Value: raw}
}

func snapshot(amount, currency, category string) rule.Snapshot {
	return rule.Snapshot{
		AmountOriginal: decimal.RequireFromString(amount),
		Currency:       currency,
		Category:       category,
	}
}

var _ = Describe("Evaluate", func() {
	It("never fires for a rule with no conditions", func() {
		r := &rule.Rule{Operator: rule.OperatorOr}

		Expect(rule.Evaluate(r, snapshot("999999", "USD", "travel"))).To(BeFalse())
	})

	It("never fires for a nil rule", func() {
		Expect(rule.Evaluate(nil, snapshot("100", "USD", "travel"))).To(BeFalse())
	})

	It("is deterministic for identical inputs", func() {
		r := &rule.Rule{
			Operator:   rule.OperatorAnd,
			Conditions: []rule.Condition{condition(rule.ConditionAmountThreshold, "500")},
		}
		s := snapshot("750.00", "USD", "travel")

		first := rule.Evaluate(r, s)
		for i := 0; i < 10; i++ {
			Expect(rule.Evaluate(r, s)).To(Equal(first))
		}
	})

	Describe("amount_threshold", func() {
		threshold := func(v interface{}) *rule.Rule {
			return &rule.Rule{Conditions: []rule.Condition{condition(rule.ConditionAmountThreshold, v)}}
		}

		It("fires at or above the threshold", func() {
			Expect(rule.Evaluate(threshold("1000"), snapshot("1000.00", "USD", ""))).To(BeTrue())
			Expect(rule.Evaluate(threshold("1000"), snapshot("1000.01", "USD", ""))).To(BeTrue())
			Expect(rule.Evaluate(threshold("1000"), snapshot("999.99", "USD", ""))).To(BeFalse())
		})

		It("accepts numeric JSON values", func() {
			Expect(rule.Evaluate(threshold(1000), snapshot("1500", "USD", ""))).To(BeTrue())
			Expect(rule.Evaluate(threshold(1000.50), snapshot("1000.49", "USD", ""))).To(BeFalse())
		})

		It("prefers the normalized amount when present", func() {
			normalized := decimal.RequireFromString("1200.00")
			s := rule.Snapshot{
				AmountOriginal: decimal.RequireFromString("900.00"),
				AmountCompany:  &normalized,
				Currency:       "EUR",
			}

			Expect(rule.Evaluate(threshold("1000"), s)).To(BeTrue())
		})

		It("falls back to the original amount when conversion was unavailable", func() {
			Expect(rule.Evaluate(threshold("1000"), snapshot("900.00", "EUR", ""))).To(BeFalse())
		})

		It("ignores unparseable thresholds", func() {
			Expect(rule.Evaluate(threshold("a lot"), snapshot("999999", "USD", ""))).To(BeFalse())
		})
	})

	Describe("category and currency", func() {
		It("matches category case-insensitively", func() {
			r := &rule.Rule{Conditions: []rule.Condition{condition(rule.ConditionCategory, "Travel")}}

			Expect(rule.Evaluate(r, snapshot("10", "USD", "travel"))).To(BeTrue())
			Expect(rule.Evaluate(r, snapshot("10", "USD", "meals"))).To(BeFalse())
		})

		It("matches currency case-insensitively", func() {
			r := &rule.Rule{Conditions: []rule.Condition{condition(rule.ConditionCurrency, "eur")}}

			Expect(rule.Evaluate(r, snapshot("10", "EUR", ""))).To(BeTrue())
			Expect(rule.Evaluate(r, snapshot("10", "USD", ""))).To(BeFalse())
		})
	})

	Describe("operators", func() {
		conditions := []rule.Condition{
			condition(rule.ConditionAmountThreshold, "1000"),
			condition(rule.ConditionCategory, "travel"),
		}

		It("AND requires every condition", func() {
			r := &rule.Rule{Operator: rule.OperatorAnd, Conditions: conditions}

			Expect(rule.Evaluate(r, snapshot("1500", "USD", "travel"))).To(BeTrue())
			Expect(rule.Evaluate(r, snapshot("1500", "USD", "meals"))).To(BeFalse())
			Expect(rule.Evaluate(r, snapshot("500", "USD", "travel"))).To(BeFalse())
		})

		It("OR fires on any condition", func() {
			r := &rule.Rule{Operator: rule.OperatorOr, Conditions: conditions}

			Expect(rule.Evaluate(r, snapshot("1500", "USD", "meals"))).To(BeTrue())
			Expect(rule.Evaluate(r, snapshot("500", "USD", "travel"))).To(BeTrue())
			Expect(rule.Evaluate(r, snapshot("500", "USD", "meals"))).To(BeFalse())
		})

		It("defaults to OR when the operator is blank", func() {
			r := &rule.Rule{Conditions: conditions}

			Expect(rule.Evaluate(r, snapshot("1500", "USD", "meals"))).To(BeTrue())
		})
	})

	It("treats unknown condition types as non-matching", func() {
		r := &rule.Rule{
			Operator: rule.OperatorOr,
			Conditions: []rule.Condition{
				condition("weekday", "monday"),
				condition(rule.ConditionAmountThreshold, "100"),
			},
		}

		// the unknown condition is false, the threshold still fires
		Expect(rule.Evaluate(r, snapshot("200", "USD", ""))).To(BeTrue())

		onlyUnknown := &rule.Rule{
			Operator:   rule.OperatorAnd,
			Conditions: []rule.Condition{condition("weekday", "monday")},
		}
		Expect(rule.Evaluate(onlyUnknown, snapshot("200", "USD", ""))).To(BeFalse())
	})
})
