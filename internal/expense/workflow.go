package expense

import (
	"time"

	errors "github.com/approveflow/expense-service/internal"
)

// Submit moves a draft into the approval pipeline with the given chain
// attached. An empty chain means no approval is required and the expense is
// immediately approved. Submitting anything but a draft fails: terminal and
// in-flight expenses report already-submitted.
func (e *Expense) Submit(chain []ApprovalStep, ruleID *int64, now time.Time) error {
	if !e.IsDraft() {
		return errors.ErrAlreadySubmitted
	}

	e.ApprovalWorkflow = chain
	e.CurrentApproverIndex = 0
	e.ApprovalRuleID = ruleID
	e.SubmittedAt = &now

	if len(chain) == 0 {
		e.Status = StatusApproved
		return nil
	}

	e.Status = StatusPending
	return nil
}

// ApplyDecision records an approver's decision on the active step and
// advances the workflow. Guards run in a fixed order so callers see the most
// specific failure: no actionable step, then authorization, then step state.
//
// An approval moves the cursor one step forward; the final approval
// terminates the chain as approved, any earlier one moves the expense to
// processing. A rejection terminates the whole chain immediately, leaving
// later steps untouched at pending.
func (e *Expense) ApplyDecision(approverID int64, decision string, comments *string, now time.Time) error {
	step, err := e.PendingStep()
	if err != nil {
		return err
	}

	if step.ApproverID != approverID {
		return errors.ErrNotStepApprover
	}

	if step.Status != StepPending {
		return errors.ErrStepAlreadyActed
	}

	switch decision {
	case DecisionApproved:
		step.Status = StepApproved
		step.Comments = comments
		step.ActedAt = &now

		e.CurrentApproverIndex++
		if e.CurrentApproverIndex == len(e.ApprovalWorkflow) {
			e.Status = StatusApproved
		} else {
			e.Status = StatusProcessing
		}
		return nil

	case DecisionRejected:
		step.Status = StepRejected
		step.Comments = comments
		step.ActedAt = &now
		e.Status = StatusRejected
		return nil

	default:
		return errors.NewValidationError("decision must be approved or rejected", errors.ErrCodeInvalidDecision)
	}
}

// ApplyOverride lets an admin force a status regardless of where the chain
// stands, including reopening a settled expense back to pending. The override
// is recorded as an extra synthetic step appended to the chain so the audit
// trail shows who forced the outcome; the cursor is left where the regular
// flow parked it, so a reopened expense does not resume an in-chain decision
// cleanly.
func (e *Expense) ApplyOverride(adminID int64, status string, comments *string, now time.Time) error {
	if e.IsDraft() {
		return errors.ErrNoPendingStep
	}

	var stepStatus string
	switch status {
	case StatusApproved:
		stepStatus = StepApproved
	case StatusRejected:
		stepStatus = StepRejected
	case StatusPending:
		stepStatus = StepPending
	default:
		return errors.NewValidationError("status must be approved, rejected or pending", errors.ErrCodeInvalidDecision)
	}

	sequence := 1
	if n := len(e.ApprovalWorkflow); n > 0 {
		sequence = e.ApprovalWorkflow[n-1].Sequence + 1
	}

	e.ApprovalWorkflow = append(e.ApprovalWorkflow, ApprovalStep{
		ApproverID: adminID,
		Sequence:   sequence,
		Status:     stepStatus,
		Comments:   comments,
		ActedAt:    &now,
	})
	e.Status = status
	return nil
}
