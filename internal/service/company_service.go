package service

import (
	"context"
	"errors"
	"strings"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/repository"
	"github.com/infotcjeff2-droid/properties2/internal/store"
)

// CompanyCounts are the related record totals shown with each company
type CompanyCounts struct {
	Users      int `json:"users"`
	Properties int `json:"properties"`
}

type CompanyView struct {
	model.Company
	Count CompanyCounts `json:"_count"`
}

type NewCompanyRequest struct {
	Name             string `json:"name"`
	Domain           string `json:"domain"`
	SubscriptionPlan string `json:"subscriptionPlan"`
}

type CompanyService struct {
	accounts repository.AccountRepository
	store    *store.Store
}

func NewCompanyService(accounts repository.AccountRepository, s *store.Store) *CompanyService {
	return &CompanyService{accounts: accounts, store: s}
}

// List returns companies newest first with user and property counts
func (s *CompanyService) List(ctx context.Context) ([]CompanyView, error) {
	companies, err := s.accounts.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CompanyView, 0, len(companies))
	for _, c := range companies {
		users, err := s.accounts.ListUsers(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		props, err := s.store.Properties.GetAll(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, CompanyView{Company: c, Count: CompanyCounts{Users: len(users), Properties: len(props)}})
	}
	return out, nil
}

// Create adds an ACTIVE company; a non-empty domain must be unused
func (s *CompanyService) Create(ctx context.Context, req NewCompanyRequest) (model.Company, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Domain = strings.TrimSpace(req.Domain)
	if req.Name == "" {
		return model.Company{}, ErrCompanyNameRequired
	}
	if req.Domain != "" {
		_, err := s.accounts.FindCompanyByDomain(ctx, req.Domain)
		if err == nil {
			return model.Company{}, ErrDomainTaken
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Company{}, err
		}
	}
	return s.accounts.CreateCompany(ctx, model.Company{
		Name:             req.Name,
		Domain:           req.Domain,
		SubscriptionPlan: strings.TrimSpace(req.SubscriptionPlan),
		Status:           model.CompanyActive,
	})
}
