package postgres

import (
	"time"

	"gorm.io/gorm"

	ruleDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/rule"
	"github.com/approveflow/expense-service/internal/rule"
)

// RuleRepository implements the rule.Repository interface using GORM.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) rule.Repository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(domainRule *rule.Rule) error {
	dm := rule.ToDataModel(domainRule)
	if err := r.db.Create(dm).Error; err != nil {
		return err
	}
	domainRule.ID = dm.ID
	domainRule.CreatedAt = dm.CreatedAt
	domainRule.UpdatedAt = dm.UpdatedAt
	return nil
}

func (r *RuleRepository) GetByID(companyID, id int64) (*rule.Rule, error) {
	var dm ruleDatamodel.Rule
	err := r.db.Where("id = ? AND company_id = ?", id, companyID).First(&dm).Error
	if err != nil {
		return nil, err
	}
	return rule.FromDataModel(&dm), nil
}

func (r *RuleRepository) ListByCompany(companyID int64) ([]*rule.Rule, error) {
	var dms []*ruleDatamodel.Rule
	err := r.db.Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return rule.FromDataModelSlice(dms), nil
}

func (r *RuleRepository) Update(domainRule *rule.Rule) error {
	dm := rule.ToDataModel(domainRule)
	dm.UpdatedAt = time.Now()
	return r.db.Model(&ruleDatamodel.Rule{}).
		Where("id = ? AND company_id = ?", dm.ID, dm.CompanyID).
		Updates(map[string]interface{}{
			"name":       dm.Name,
			"operator":   dm.Operator,
			"conditions": dm.Conditions,
			"approvers":  dm.Approvers,
			"updated_at": dm.UpdatedAt,
		}).Error
}

func (r *RuleRepository) Delete(companyID, id int64) error {
	return r.db.Where("id = ? AND company_id = ?", id, companyID).
		Delete(&ruleDatamodel.Rule{}).Error
}
