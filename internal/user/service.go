package user

import (
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	errors "github.com/approveflow/expense-service/internal"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
)

// Repository defines the data access methods for users.
type Repository interface {
	Create(u *userDatamodel.User) error
	GetByID(id int64) (*userDatamodel.User, error)
	GetByEmail(email string) (*userDatamodel.User, error)
	ListByCompany(companyID int64) ([]*userDatamodel.User, error)
	ListReports(companyID, managerID int64) ([]*userDatamodel.User, error)
	Update(u *userDatamodel.User) error
	Delete(companyID, userID int64) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUser provisions a user inside the admin's company. A referenced
// manager must exist in the same company.
func (s *Service) CreateUser(companyID int64, dto CreateUserDTO) (*userDatamodel.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if existing, err := s.repo.GetByEmail(email); err == nil && existing != nil {
		return nil, errors.ErrEmailTaken
	}

	if dto.ManagerID != nil {
		if err := s.checkManager(companyID, *dto.ManagerID); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	u := &userDatamodel.User{
		CompanyID:         companyID,
		Email:             email,
		Name:              dto.Name,
		PasswordHash:      string(hash),
		Role:              dto.Role,
		ManagerID:         dto.ManagerID,
		IsManagerApprover: dto.IsManagerApprover,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", email)
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "company_id", companyID, "role", u.Role)
	return u, nil
}

func (s *Service) GetUser(companyID, userID int64) (*userDatamodel.User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil || u.CompanyID != companyID {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) ListUsers(companyID int64) ([]*userDatamodel.User, error) {
	users, err := s.repo.ListByCompany(companyID)
	if err != nil {
		s.logger.Error("failed to list users", "error", err, "company_id", companyID)
		return nil, errors.NewInternalError("failed to list users", err)
	}
	return users, nil
}

func (s *Service) UpdateUser(companyID, userID int64, dto UpdateUserDTO) (*userDatamodel.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.GetUser(companyID, userID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Role != nil {
		u.Role = *dto.Role
	}
	if dto.ClearManager {
		u.ManagerID = nil
	} else if dto.ManagerID != nil {
		if *dto.ManagerID == userID {
			return nil, errors.NewValidationFieldError("manager_id", "a user cannot manage themselves", errors.ErrCodeValidationFailed)
		}
		if err := s.checkManager(companyID, *dto.ManagerID); err != nil {
			return nil, err
		}
		u.ManagerID = dto.ManagerID
	}
	if dto.IsManagerApprover != nil {
		u.IsManagerApprover = *dto.IsManagerApprover
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", userID, "company_id", companyID)
	return u, nil
}

// DeleteUser removes a user from the admin's company. Expenses and chain
// steps keep the user id as an audit reference.
func (s *Service) DeleteUser(companyID, actorID, userID int64) error {
	if userID == actorID {
		return errors.NewValidationFieldError("id", "cannot delete your own account", errors.ErrCodeValidationFailed)
	}
	if _, err := s.GetUser(companyID, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(companyID, userID); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", userID)
		return errors.NewInternalError("failed to delete user", err)
	}
	s.logger.Info("user deleted", "user_id", userID, "company_id", companyID)
	return nil
}

// GetUserByID resolves a user without company scoping. The workflow engine
// calls this with IDs it read from its own aggregates.
func (s *Service) GetUserByID(userID int64) (*userDatamodel.User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

// ListDirectReports returns the users whose manager is the given user.
func (s *Service) ListDirectReports(companyID, managerID int64) ([]*userDatamodel.User, error) {
	return s.repo.ListReports(companyID, managerID)
}

func (s *Service) checkManager(companyID, managerID int64) error {
	manager, err := s.repo.GetByID(managerID)
	if err != nil || manager.CompanyID != companyID {
		return errors.NewValidationFieldError("manager_id", "manager not found in company", errors.ErrCodeUserNotFound)
	}
	return nil
}
