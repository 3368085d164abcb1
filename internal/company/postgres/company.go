package postgres

import (
	"gorm.io/gorm"

	"github.com/approveflow/expense-service/internal/company"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
)

// CompanyRepository implements the company.Repository interface using GORM.
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.Repository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) GetByID(id int64) (*companyDatamodel.Company, error) {
	var c companyDatamodel.Company
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) Update(c *companyDatamodel.Company) error {
	return r.db.Model(&companyDatamodel.Company{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name": c.Name,
		}).Error
}
