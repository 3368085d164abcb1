package rule

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Evaluate reports whether the rule's condition set is satisfied by the
// snapshot. It is a pure function: identical inputs always produce the same
// result, which chain construction and audit review both rely on.
//
// A rule with no conditions never fires. Unknown condition types evaluate
// false rather than failing the whole evaluation.
func Evaluate(r *Rule, snapshot Snapshot) bool {
	if r == nil || len(r.Conditions) == 0 {
		return false
	}

	if strings.EqualFold(r.Operator, OperatorAnd) {
		for _, c := range r.Conditions {
			if !evaluateCondition(c, snapshot) {
				return false
			}
		}
		return true
	}

	// OR is the default operator
	for _, c := range r.Conditions {
		if evaluateCondition(c, snapshot) {
			return true
		}
	}
	return false
}

func evaluateCondition(c Condition, snapshot Snapshot) bool {
	switch c.Type {
	case ConditionAmountThreshold:
		threshold, ok := decimalValue(c.Value)
		if !ok {
			return false
		}
		return snapshot.ComparableAmount().GreaterThanOrEqual(threshold)

	case ConditionCategory:
		category, ok := stringValue(c.Value)
		if !ok {
			return false
		}
		return strings.EqualFold(snapshot.Category, category)

	case ConditionCurrency:
		currency, ok := stringValue(c.Value)
		if !ok {
			return false
		}
		return strings.EqualFold(snapshot.Currency, currency)

	default:
		return false
	}
}

func decimalValue(raw json.RawMessage) (decimal.Decimal, bool) {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		if d, err := decimal.NewFromString(number.String()); err == nil {
			return d, true
		}
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if d, err := decimal.NewFromString(str); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

func stringValue(raw json.RawMessage) (string, bool) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return "", false
	}
	return str, true
}
