package expense

import (
	"sort"

	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
	"github.com/approveflow/expense-service/internal/rule"
)

// BuildChain resolves the approver chain for an expense at submission time.
//
// Rules are tried in the order given (oldest first, the order the repository
// returns them in) and the first whose conditions match the snapshot wins;
// its approvers become the chain, ordered by sequence with ties kept stable.
// When no rule matches, the employee's manager is the single approver. An
// employee with no manager gets an empty chain, which Submit treats as
// auto-approval.
func BuildChain(rules []*rule.Rule, employee *userDatamodel.User, snapshot rule.Snapshot) ([]ApprovalStep, *int64) {
	for _, r := range rules {
		if !rule.Evaluate(r, snapshot) {
			continue
		}

		approvers := make([]rule.Approver, len(r.Approvers))
		copy(approvers, r.Approvers)
		sort.SliceStable(approvers, func(i, j int) bool {
			return approvers[i].Sequence < approvers[j].Sequence
		})

		steps := make([]ApprovalStep, len(approvers))
		for i, a := range approvers {
			steps[i] = ApprovalStep{
				ApproverID: a.UserID,
				Sequence:   a.Sequence,
				Status:     StepPending,
			}
		}
		ruleID := r.ID
		return steps, &ruleID
	}

	if employee.ManagerID != nil {
		return []ApprovalStep{{
			ApproverID: *employee.ManagerID,
			Sequence:   1,
			Status:     StepPending,
		}}, nil
	}

	return nil, nil
}
