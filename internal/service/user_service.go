package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/repository"
)

// UserView is a user as listed to administrators
type UserView struct {
	model.PublicUser
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUserRequest is the body of a user creation
type NewUserRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	CompanyID string     `json:"companyId"`
}

type UserService struct {
	accounts repository.AccountRepository
	auth     *AuthService
}

func NewUserService(accounts repository.AccountRepository, auth *AuthService) *UserService {
	return &UserService{accounts: accounts, auth: auth}
}

// List returns every user to a super admin and the company's users to a company admin
func (s *UserService) List(ctx context.Context, actor Actor) ([]UserView, error) {
	var companyID string
	switch actor.Role {
	case model.RoleSuperAdmin:
	case model.RoleCompanyAdmin:
		if actor.CompanyID == "" {
			return nil, ErrNoCompany
		}
		companyID = actor.CompanyID
	default:
		return nil, ErrForbidden
	}

	users, err := s.accounts.ListUsers(ctx, companyID)
	if err != nil {
		return nil, err
	}

	companies := map[string]*model.Company{}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		view := UserView{PublicUser: u.Public(), CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
		if u.CompanyID != "" {
			c, seen := companies[u.CompanyID]
			if !seen {
				if found, err := s.accounts.FindCompany(ctx, u.CompanyID); err == nil {
					c = &found
				}
				companies[u.CompanyID] = c
			}
			view.Company = c
		}
		out = append(out, view)
	}
	return out, nil
}

// Create adds a user. A super admin picks any role in an existing company;
// a company admin may only add staff to their own company.
func (s *UserService) Create(ctx context.Context, actor Actor, req NewUserRequest) (model.PublicUser, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return model.PublicUser{}, ErrMissingUserFields
	}
	if req.Role == "" {
		req.Role = model.RoleStaff
	}
	if !req.Role.Valid() {
		return model.PublicUser{}, ErrInvalidRole
	}

	companyID := req.CompanyID
	switch actor.Role {
	case model.RoleSuperAdmin:
		if companyID == "" {
			return model.PublicUser{}, ErrCompanyRequired
		}
		if _, err := s.accounts.FindCompany(ctx, companyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.PublicUser{}, ErrCompanyNotFound
			}
			return model.PublicUser{}, err
		}
	case model.RoleCompanyAdmin:
		if actor.CompanyID == "" {
			return model.PublicUser{}, ErrNoCompany
		}
		companyID = actor.CompanyID
		if req.Role == model.RoleSuperAdmin || req.Role == model.RoleCompanyAdmin {
			return model.PublicUser{}, ErrRoleForbidden
		}
	default:
		return model.PublicUser{}, ErrCreateUserForbidden
	}

	if _, err := s.accounts.FindUserByEmail(ctx, req.Email); err == nil {
		return model.PublicUser{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.PublicUser{}, err
	}

	created, err := s.auth.CreateAccount(ctx, req.Email, req.Password, req.Name, req.Role, companyID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return created.Public(), nil
}
