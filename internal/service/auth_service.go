package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/repository"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
	"github.com/infotcjeff2-droid/properties2/pkg/jwtutil"
	"golang.org/x/crypto/bcrypt"
)

const (
	guestEmail    = "guest@example.com"
	guestPassword = "guest123"
	guestName     = "訪客"
	adminName     = "系統管理員"
)

// Session is a signed token plus the user it was issued to
type Session struct {
	Token string
	User  model.PublicUser
}

type AuthService struct {
	accounts      repository.AccountRepository
	jwt           *jwtutil.JWTUtil
	cost          int
	adminEmail    string
	adminPassword string
}

func NewAuthService(accounts repository.AccountRepository, jwt *jwtutil.JWTUtil, cfg *config.AuthConfig) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		accounts:      accounts,
		jwt:           jwt,
		cost:          cost,
		adminEmail:    cfg.AdminEmail,
		adminPassword: cfg.AdminPassword,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies the credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrMissingCredentials
	}

	user, err := s.accounts.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// GuestLogin signs in as the shared guest account, creating it on first use
func (s *AuthService) GuestLogin(ctx context.Context) (Session, error) {
	user, err := s.accounts.FindUserByEmail(ctx, guestEmail)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.CreateAccount(ctx, guestEmail, guestPassword, guestName, model.RoleStaff, "")
	}
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// DefaultAdmin builds the first super administrator account
func (s *AuthService) DefaultAdmin() (model.User, error) {
	hash, err := s.HashPassword(s.adminPassword)
	if err != nil {
		return model.User{}, err
	}
	return model.User{Email: s.adminEmail, Password: hash, Name: adminName, Role: model.RoleSuperAdmin}, nil
}

// EnsureAdmin creates the default administrator unless one exists
func (s *AuthService) EnsureAdmin(ctx context.Context) (model.User, bool, error) {
	existing, err := s.accounts.FindUserByEmail(ctx, s.adminEmail)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, false, err
	}
	admin, err := s.DefaultAdmin()
	if err != nil {
		return model.User{}, false, err
	}
	created, err := s.accounts.CreateUser(ctx, admin)
	if err != nil {
		return model.User{}, false, err
	}
	return created, true, nil
}

// AdminCredentials are the configured default administrator login
func (s *AuthService) AdminCredentials() (email, password string) {
	return s.adminEmail, s.adminPassword
}

// CreateAccount hashes password and stores a new user
func (s *AuthService) CreateAccount(ctx context.Context, email, password, name string, role model.Role, companyID string) (model.User, error) {
	hash, err := s.HashPassword(password)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Base:     model.Base{CompanyID: companyID},
		Email:    email,
		Password: hash,
		Name:     name,
		Role:     role,
	}
	return s.accounts.CreateUser(ctx, u)
}

// issue signs a session for user. The shared guest account only gets read access.
func (s *AuthService) issue(ctx context.Context, user model.User) (Session, error) {
	generate := s.jwt.GenerateToken
	if strings.EqualFold(user.Email, guestEmail) {
		generate = s.jwt.GenerateReadOnlyToken
	}
	public := user.Public()
	token, err := generate(user.ID, user.Email, string(user.Role), public.CompanyID)
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}
	if user.CompanyID != "" {
		if company, err := s.accounts.FindCompany(ctx, user.CompanyID); err == nil {
			public.Company = &company
		}
	}
	return Session{Token: token, User: public}, nil
}
