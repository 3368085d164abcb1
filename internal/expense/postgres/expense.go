package postgres

import (
	"time"

	"gorm.io/gorm"

	errors "github.com/approveflow/expense-service/internal"
	expenseDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/expense"
	"github.com/approveflow/expense-service/internal/expense"
)

// ExpenseRepository implements the expense.Repository interface using GORM.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(e *expense.Expense) error {
	dm := expense.ToDataModel(e)
	if err := r.db.Create(dm).Error; err != nil {
		return err
	}
	e.ID = dm.ID
	e.Version = dm.Version
	e.CreatedAt = dm.CreatedAt
	e.UpdatedAt = dm.UpdatedAt
	return nil
}

func (r *ExpenseRepository) GetByID(companyID, id int64) (*expense.Expense, error) {
	var dm expenseDatamodel.Expense
	err := r.db.Where("id = ? AND company_id = ?", id, companyID).First(&dm).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModel(&dm), nil
}

// Update persists draft edits. The status predicate keeps an edit racing a
// submit from rewriting an expense whose chain was already built from the
// old values.
func (r *ExpenseRepository) Update(e *expense.Expense) error {
	dm := expense.ToDataModel(e)
	dm.UpdatedAt = time.Now()
	result := r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND company_id = ? AND status = ?", dm.ID, dm.CompanyID, expense.StatusDraft).
		Updates(map[string]interface{}{
			"description":      dm.Description,
			"category":         dm.Category,
			"amount_original":  dm.AmountOriginal,
			"currency":         dm.Currency,
			"amount_company":   dm.AmountCompany,
			"receipt_url":      dm.ReceiptURL,
			"receipt_filename": dm.ReceiptFileName,
			"expense_date":     dm.ExpenseDate,
			"updated_at":       dm.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotDraft
	}
	return nil
}

// UpdateWithVersion commits a workflow transition with an optimistic
// concurrency check. The conditional WHERE makes the database the arbiter
// under racing approvers: exactly one transition commits per version, the
// rest observe zero affected rows and fail with ErrConcurrentUpdate.
func (r *ExpenseRepository) UpdateWithVersion(e *expense.Expense) error {
	dm := expense.ToDataModel(e)
	now := time.Now()

	result := r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND company_id = ? AND version = ?", dm.ID, dm.CompanyID, dm.Version).
		Updates(map[string]interface{}{
			"status":                 dm.Status,
			"approval_workflow":      dm.ApprovalWorkflow,
			"current_approver_index": dm.CurrentApproverIndex,
			"approval_rule_id":       dm.ApprovalRuleID,
			"submitted_at":           dm.SubmittedAt,
			"version":                dm.Version + 1,
			"updated_at":             now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrConcurrentUpdate
	}

	e.Version = dm.Version + 1
	e.UpdatedAt = now
	return nil
}

// Delete removes drafts only; submitted expenses stay for audit even when a
// delete races the submit.
func (r *ExpenseRepository) Delete(companyID, id int64) error {
	result := r.db.Where("id = ? AND company_id = ? AND status = ?", id, companyID, expense.StatusDraft).
		Delete(&expenseDatamodel.Expense{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotDraft
	}
	return nil
}

func (r *ExpenseRepository) ListByEmployee(companyID, employeeID int64) ([]*expense.Expense, error) {
	var dms []*expenseDatamodel.Expense
	err := r.db.Where("company_id = ? AND employee_id = ?", companyID, employeeID).
		Order("created_at DESC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(dms), nil
}

// ListActiveByCompany returns every in-flight expense. Matching the active
// step's approver happens in the service; the chain lives in a JSON column
// and correlating the cursor with a step there is not portable SQL.
func (r *ExpenseRepository) ListActiveByCompany(companyID int64) ([]*expense.Expense, error) {
	var dms []*expenseDatamodel.Expense
	err := r.db.Where("company_id = ? AND status IN ?", companyID,
		[]string{expense.StatusPending, expense.StatusProcessing}).
		Order("submitted_at ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(dms), nil
}

func (r *ExpenseRepository) ListByEmployees(companyID int64, employeeIDs []int64) ([]*expense.Expense, error) {
	if len(employeeIDs) == 0 {
		return []*expense.Expense{}, nil
	}
	var dms []*expenseDatamodel.Expense
	err := r.db.Where("company_id = ? AND employee_id IN ?", companyID, employeeIDs).
		Order("created_at DESC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(dms), nil
}

func (r *ExpenseRepository) ListByCompany(companyID int64, filter expense.ListFilter) ([]*expense.Expense, error) {
	query := r.db.Where("company_id = ?", companyID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EmployeeID != 0 {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.DateFrom != nil {
		query = query.Where("expense_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("expense_date <= ?", *filter.DateTo)
	}

	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
		if filter.Page > 1 {
			query = query.Offset((filter.Page - 1) * filter.Limit)
		}
	}

	var dms []*expenseDatamodel.Expense
	if err := query.Find(&dms).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(dms), nil
}
