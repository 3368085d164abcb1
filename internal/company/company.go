package company

import (
	"time"

	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
)

type CompanyView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	Country         string    `json:"country"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewCompanyView(c *companyDatamodel.Company) CompanyView {
	return CompanyView{
		ID:              c.ID,
		Name:            c.Name,
		DefaultCurrency: c.DefaultCurrency,
		Country:         c.Country,
		CreatedAt:       c.CreatedAt,
	}
}

// UpdateCompanyDTO patches company settings. The default currency is fixed at
// signup; changing it would silently re-denominate historical normalized
// amounts.
type UpdateCompanyDTO struct {
	Name *string `json:"name,omitempty"`
}
