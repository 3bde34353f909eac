package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/store"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no account or company matches
var ErrNotFound = errors.New("record not found")

// AccountRepository persists users and companies
type AccountRepository interface {
	FindUser(ctx context.Context, id string) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, companyID string) ([]model.User, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)

	FindCompany(ctx context.Context, id string) (model.Company, error)
	FindCompanyByDomain(ctx context.Context, domain string) (model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
	CreateCompany(ctx context.Context, c model.Company) (model.Company, error)
}

// StoreAccounts keeps accounts in the record store's users and companies collections
type StoreAccounts struct {
	s *store.Store
}

func NewStoreAccounts(s *store.Store) *StoreAccounts {
	return &StoreAccounts{s: s}
}

func (r *StoreAccounts) FindUser(ctx context.Context, id string) (model.User, error) {
	u, err := r.s.Users.Get(ctx, id)
	return u, mapStoreErr(err)
}

func (r *StoreAccounts) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	found, err := r.s.Users.Find(ctx, "", func(u model.User) bool {
		return strings.EqualFold(u.Email, email)
	})
	if err != nil {
		return model.User{}, err
	}
	if len(found) == 0 {
		return model.User{}, ErrNotFound
	}
	return found[0], nil
}

func (r *StoreAccounts) ListUsers(ctx context.Context, companyID string) ([]model.User, error) {
	users, err := r.s.Users.GetAll(ctx, companyID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (r *StoreAccounts) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	return r.s.Users.Create(ctx, u)
}

func (r *StoreAccounts) FindCompany(ctx context.Context, id string) (model.Company, error) {
	c, err := r.s.Companies.Get(ctx, id)
	return c, mapStoreErr(err)
}

func (r *StoreAccounts) FindCompanyByDomain(ctx context.Context, domain string) (model.Company, error) {
	found, err := r.s.Companies.Find(ctx, "", func(c model.Company) bool {
		return c.Domain != "" && strings.EqualFold(c.Domain, domain)
	})
	if err != nil {
		return model.Company{}, err
	}
	if len(found) == 0 {
		return model.Company{}, ErrNotFound
	}
	return found[0], nil
}

func (r *StoreAccounts) ListCompanies(ctx context.Context) ([]model.Company, error) {
	companies, err := r.s.Companies.GetAll(ctx, "")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(companies, func(i, j int) bool { return companies[i].CreatedAt.After(companies[j].CreatedAt) })
	return companies, nil
}

func (r *StoreAccounts) CreateCompany(ctx context.Context, c model.Company) (model.Company, error) {
	return r.s.Companies.Create(ctx, c)
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GormAccounts keeps accounts in relational users and companies tables
type GormAccounts struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormAccounts migrates the account tables and returns the repository
func NewGormAccounts(db *gorm.DB) (*GormAccounts, error) {
	if err := db.AutoMigrate(&model.Company{}, &model.User{}); err != nil {
		return nil, err
	}
	return &GormAccounts{db: db, now: time.Now}, nil
}

func (r *GormAccounts) FindUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return u, mapGormErr(err)
}

func (r *GormAccounts) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	return u, mapGormErr(err)
}

func (r *GormAccounts) ListUsers(ctx context.Context, companyID string) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx).Order("created_at desc")
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormAccounts) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	r.stamp(&u.Base, "user")
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *GormAccounts) FindCompany(ctx context.Context, id string) (model.Company, error) {
	var c model.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	return c, mapGormErr(err)
}

func (r *GormAccounts) FindCompanyByDomain(ctx context.Context, domain string) (model.Company, error) {
	var c model.Company
	err := r.db.WithContext(ctx).Where("LOWER(domain) = ?", strings.ToLower(domain)).First(&c).Error
	return c, mapGormErr(err)
}

func (r *GormAccounts) ListCompanies(ctx context.Context) ([]model.Company, error) {
	var companies []model.Company
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *GormAccounts) CreateCompany(ctx context.Context, c model.Company) (model.Company, error) {
	r.stamp(&c.Base, "company")
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Company{}, err
	}
	return c, nil
}

// stamp gives new rows the same id and timestamp shape as store records
func (r *GormAccounts) stamp(b *model.Base, prefix string) {
	now := r.now().UTC().Truncate(time.Millisecond)
	if b.ID == "" {
		b.ID = store.GenerateID(prefix, now)
	}
	b.CreatedAt = now
	b.UpdatedAt = now
}

func mapGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
