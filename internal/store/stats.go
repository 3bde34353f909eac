package store

import (
	"context"
	"math"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/model"
)

// ExpiringWindow is the look-ahead used by the dashboard
const ExpiringWindow = 7 * 24 * time.Hour

type OccupancyRate struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type ExpiringContractsStat struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

type PendingPayments struct {
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
	Total   int `json:"total"`
}

type MaintenanceStat struct {
	Recent  int `json:"recent"`
	Pending int `json:"pending"`
}

type PostingRate struct {
	Percentage int `json:"percentage"`
	Available  int `json:"available"`
	Total      int `json:"total"`
}

// Stats is the dashboard summary for one company, or for everything
type Stats struct {
	OccupancyRate     OccupancyRate         `json:"occupancyRate"`
	ExpiringContracts ExpiringContractsStat `json:"expiringContracts"`
	PendingPayments   PendingPayments       `json:"pendingPayments"`
	MaintenanceOrders MaintenanceStat       `json:"maintenanceOrders"`
	PostingRate       PostingRate           `json:"postingRate"`
}

// ExpiringContracts returns ACTIVE contracts whose endDate falls in [now, now+window]
func (s *Store) ExpiringContracts(ctx context.Context, companyID string, now time.Time, window time.Duration) ([]model.Contract, error) {
	limit := now.Add(window)
	return s.Contracts.Find(ctx, companyID, func(c model.Contract) bool {
		return expiresWithin(c, now, limit)
	})
}

func expiresWithin(c model.Contract, now, limit time.Time) bool {
	if c.Status != model.ContractActive {
		return false
	}
	end, ok := model.ParseDate(c.EndDate)
	if !ok {
		return false
	}
	return !end.Before(now) && !end.After(limit)
}

// Stats computes occupancy, expiring contracts, outstanding income,
// recent maintenance and posting rate
func (s *Store) Stats(ctx context.Context, companyID string, now time.Time) (Stats, error) {
	var st Stats

	properties, err := s.Properties.GetAll(ctx, companyID)
	if err != nil {
		return st, err
	}
	contracts, err := s.Contracts.GetAll(ctx, companyID)
	if err != nil {
		return st, err
	}
	transactions, err := s.Transactions.GetAll(ctx, companyID)
	if err != nil {
		return st, err
	}
	orders, err := s.MaintenanceOrders.GetAll(ctx, companyID)
	if err != nil {
		return st, err
	}

	total := len(properties)
	held := 0
	for _, p := range properties {
		if p.Status == model.PropertyHolding {
			held++
		}
	}
	st.OccupancyRate = OccupancyRate{Current: held, Total: total, Percentage: percentage(held, total)}
	st.PostingRate = PostingRate{Available: total - held, Total: total, Percentage: percentage(total-held, total)}

	limit := now.Add(ExpiringWindow)
	for _, c := range contracts {
		if c.Status == model.ContractActive {
			st.ExpiringContracts.Total++
		}
		if expiresWithin(c, now, limit) {
			st.ExpiringContracts.Count++
		}
	}

	for _, t := range transactions {
		if t.Type != model.TransactionIncome {
			continue
		}
		switch t.Status {
		case model.TransactionPending:
			st.PendingPayments.Pending++
		case model.TransactionOverdue:
			st.PendingPayments.Overdue++
		}
	}
	st.PendingPayments.Total = st.PendingPayments.Pending + st.PendingPayments.Overdue

	weekAgo := now.Add(-ExpiringWindow)
	for _, o := range orders {
		if !o.CreatedAt.Before(weekAgo) {
			st.MaintenanceOrders.Recent++
		}
		if o.Status == model.MaintenancePending {
			st.MaintenanceOrders.Pending++
		}
	}

	return st, nil
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
