package user

import (
	"time"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/auth"
	"github.com/approveflow/expense-service/internal/core/common/validation"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
)

type CreateUserDTO struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Password          string `json:"password"`
	Role              string `json:"role"`
	ManagerID         *int64 `json:"manager_id,omitempty"`
	IsManagerApprover bool   `json:"is_manager_approver"`
}

func (d *CreateUserDTO) Validate() *errors.AppError {
	return validation.NewValidator().
		Field("email", d.Email).Required().MaxLength(255).
		Field("name", d.Name).Required().MaxLength(255).
		Field("password", d.Password).Required().MinLength(8).
		Field("role", d.Role).Required().OneOf(auth.RoleAdmin, auth.RoleManager, auth.RoleEmployee).
		Validate()
}

// UpdateUserDTO patches the mutable attributes. Nil fields are left alone;
// ClearManager detaches the manager because a nil pointer cannot distinguish
// "unchanged" from "remove".
type UpdateUserDTO struct {
	Name              *string `json:"name,omitempty"`
	Role              *string `json:"role,omitempty"`
	ManagerID         *int64  `json:"manager_id,omitempty"`
	ClearManager      bool    `json:"clear_manager,omitempty"`
	IsManagerApprover *bool   `json:"is_manager_approver,omitempty"`
}

func (d *UpdateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Role != nil {
		v.Field("role", *d.Role).OneOf(auth.RoleAdmin, auth.RoleManager, auth.RoleEmployee)
	}
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(255)
	}
	return v.Validate()
}

// UserView is the wire shape for a user. The password hash never leaves the
// service.
type UserView struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	ManagerID         *int64    `json:"manager_id,omitempty"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewUserView(u *userDatamodel.User) UserView {
	return UserView{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              u.Role,
		ManagerID:         u.ManagerID,
		IsManagerApprover: u.IsManagerApprover,
		CreatedAt:         u.CreatedAt,
	}
}

type ListUsersResponse struct {
	Users []UserView `json:"users"`
	Total int        `json:"total"`
}

func NewListUsersResponse(users []*userDatamodel.User) ListUsersResponse {
	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = NewUserView(u)
	}
	return ListUsersResponse{Users: views, Total: len(views)}
}
