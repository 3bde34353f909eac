package service

import (
	"context"
	"sort"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/internal/store"
)

const (
	PeriodDay   = "day"
	PeriodMonth = "month"
)

// FinancialPoint is one bucket of paid income and expense
type FinancialPoint struct {
	Date    string       `json:"date"`
	Income  model.Number `json:"income"`
	Expense model.Number `json:"expense"`
	Profit  model.Number `json:"profit"`
}

type FinancialTotals struct {
	Income  model.Number `json:"income"`
	Expense model.Number `json:"expense"`
	Profit  model.Number `json:"profit"`
}

type Financial struct {
	Period    string           `json:"period"`
	ChartData []FinancialPoint `json:"chartData"`
	Totals    FinancialTotals  `json:"totals"`
}

type DashboardService struct {
	store *store.Store
	now   func() time.Time
}

func NewDashboardService(s *store.Store) *DashboardService {
	return &DashboardService{store: s, now: time.Now}
}

func (d *DashboardService) Stats(ctx context.Context, companyID string) (store.Stats, error) {
	return d.store.Stats(ctx, companyID, d.now())
}

func (d *DashboardService) ExpiringContracts(ctx context.Context, companyID string, window time.Duration) ([]model.Contract, error) {
	return d.store.ExpiringContracts(ctx, companyID, d.now(), window)
}

// Financial buckets PAID transactions by day over the last 30 days, or by
// month over the last 12 months. Any period other than "day" is monthly.
func (d *DashboardService) Financial(ctx context.Context, companyID, period string) (Financial, error) {
	now := d.now().UTC()
	var start time.Time
	layout := "2006-01"
	if period == PeriodDay {
		start = now.AddDate(0, 0, -30)
		layout = "2006-01-02"
	} else {
		period = PeriodMonth
		start = now.AddDate(0, -12, 0)
	}

	paid, err := d.store.Transactions.Find(ctx, companyID, func(t model.Transaction) bool {
		return t.Status == model.TransactionPaid
	})
	if err != nil {
		return Financial{}, err
	}

	buckets := map[string]*FinancialPoint{}
	var totals FinancialTotals
	for _, t := range paid {
		at, ok := model.ParseDate(t.PaidDate)
		if !ok || at.Before(start) {
			continue
		}
		key := at.UTC().Format(layout)
		p, ok := buckets[key]
		if !ok {
			p = &FinancialPoint{Date: key}
			buckets[key] = p
		}
		switch t.Type {
		case model.TransactionIncome:
			p.Income = model.NewNumber(p.Income.Add(t.Amount.Decimal))
			totals.Income = model.NewNumber(totals.Income.Add(t.Amount.Decimal))
		case model.TransactionExpense:
			p.Expense = model.NewNumber(p.Expense.Add(t.Amount.Decimal))
			totals.Expense = model.NewNumber(totals.Expense.Add(t.Amount.Decimal))
		}
	}

	chart := make([]FinancialPoint, 0, len(buckets))
	for _, p := range buckets {
		p.Profit = model.NewNumber(p.Income.Sub(p.Expense.Decimal))
		chart = append(chart, *p)
	}
	sort.Slice(chart, func(i, j int) bool { return chart[i].Date < chart[j].Date })
	totals.Profit = model.NewNumber(totals.Income.Sub(totals.Expense.Decimal))

	return Financial{Period: period, ChartData: chart, Totals: totals}, nil
}
