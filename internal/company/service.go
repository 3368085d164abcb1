package company

import (
	"log/slog"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/core/common/validation"
	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
)

type Repository interface {
	GetByID(id int64) (*companyDatamodel.Company, error)
	Update(c *companyDatamodel.Company) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetCompanyByID resolves a company. The expense workflow uses this to find
// the currency expenses normalize into.
func (s *Service) GetCompanyByID(id int64) (*companyDatamodel.Company, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrCompanyNotFound
	}
	return c, nil
}

func (s *Service) UpdateCompany(companyID int64, dto UpdateCompanyDTO) (*companyDatamodel.Company, error) {
	c, err := s.GetCompanyByID(companyID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		if err := validation.NewValidator().
			Field("name", *dto.Name).Required().MaxLength(255).
			Validate(); err != nil {
			return nil, err
		}
		c.Name = *dto.Name
	}

	if err := s.repo.Update(c); err != nil {
		s.logger.Error("failed to update company", "error", err, "company_id", companyID)
		return nil, errors.NewInternalError("failed to update company", err)
	}

	s.logger.Info("company updated", "company_id", companyID)
	return c, nil
}
