package auth

import (
	"github.com/approveflow/expense-service/internal/core/common/validation"
)

// SignupDTO provisions a new company together with its first admin user.
type SignupDTO struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Country     string `json:"country"`
}

func (dto SignupDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required().MaxLength(254)
	v.Field("password", dto.Password).Required().MinLength(8).MaxLength(72)
	v.Field("company_name", dto.CompanyName).Required().MaxLength(200)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (dto LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required()
	v.Field("password", dto.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type AuthResponse struct {
	Token   string       `json:"token"`
	User    ActorView    `json:"user"`
	Company *CompanyView `json:"company,omitempty"`
}

type ActorView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CompanyView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DefaultCurrency string `json:"default_currency"`
}
