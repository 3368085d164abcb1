package postgres

import (
	"gorm.io/gorm"

	"github.com/approveflow/expense-service/internal/auth"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
)

// AuthRepository implements auth.Repository using GORM.
type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.Repository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) GetUserByEmail(email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AuthRepository) GetUserByID(id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateCompanyWithAdmin creates the company and its first admin user in a
// single transaction so a half-provisioned signup never persists.
func (r *AuthRepository) CreateCompanyWithAdmin(company *companyDatamodel.Company, admin *userDatamodel.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		admin.CompanyID = company.ID
		return tx.Create(admin).Error
	})
}
