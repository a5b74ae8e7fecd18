package service

import (
	"context"

	"subhlabh/internal/dto"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dashboardListSize = 5

// MetricsCache stores the dashboard aggregate per owner and shop-local day.
type MetricsCache interface {
	Get(ctx context.Context, owner uuid.UUID, day string) (*dto.DashboardMetrics, bool)
	Set(ctx context.Context, owner uuid.UUID, day string, m *dto.DashboardMetrics)
	Invalidate(ctx context.Context, owner uuid.UUID, day string) error
}

// DashboardService serves the dashboard and owns its cache; it is also the
// DashboardInvalidator handed to every writing service.
type DashboardService interface {
	DashboardInvalidator
	Get(ctx context.Context, owner uuid.UUID) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	sales     repository.SaleRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	reports   repository.ReportRepository
	cache     MetricsCache
	clock     *Clock
	threshold decimal.Decimal
}

func NewDashboardService(
	sales repository.SaleRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	reports repository.ReportRepository,
	cache MetricsCache,
	clock *Clock,
	lowStockThreshold decimal.Decimal,
) DashboardService {
	return &dashboardService{
		sales:     sales,
		customers: customers,
		products:  products,
		reports:   reports,
		cache:     cache,
		clock:     clock,
		threshold: lowStockThreshold,
	}
}

func (s *dashboardService) Invalidate(ctx context.Context, owner uuid.UUID) {
	if s.cache == nil {
		return
	}
	day := s.clock.Today(ctx, owner)
	if err := s.cache.Invalidate(ctx, owner, day); err != nil {
		log.Error().Err(err).Str("owner", owner.String()).Str("day", day).Msg("dashboard cache: invalidate failed")
	}
}

func (s *dashboardService) Get(ctx context.Context, owner uuid.UUID) (*dto.DashboardResponse, error) {
	loc := s.clock.Location(ctx, owner)
	now := s.clock.Now().In(loc)
	day := now.Format(dayLayout)
	today := startOfDay(now, loc)
	monthStart := startOfDay(now.AddDate(0, 0, 1-now.Day()), loc)
	month := repository.DateRange{From: &monthStart, To: nil}

	resp := &dto.DashboardResponse{}
	if s.cache != nil {
		if m, ok := s.cache.Get(ctx, owner, day); ok {
			resp.Metrics = *m
			resp.Cached = true
		}
	}
	if !resp.Cached {
		m, err := s.compute(ctx, owner, day, dayRange(today, 1), month)
		if err != nil {
			return nil, err
		}
		resp.Metrics = *m
		if s.cache != nil {
			s.cache.Set(ctx, owner, day, m)
		}
	}

	recent, err := s.sales.Recent(ctx, owner, nil, dashboardListSize)
	if err != nil {
		return nil, err
	}
	resp.RecentSales = toSaleListItems(recent)

	low, err := s.products.LowStock(ctx, owner, s.threshold, dashboardListSize)
	if err != nil {
		return nil, err
	}
	resp.LowStock = make([]dto.ProductResponse, len(low))
	for i := range low {
		resp.LowStock[i] = toProductResponse(&low[i], s.threshold)
	}

	top, err := s.reports.TopProducts(ctx, owner, month, dashboardListSize)
	if err != nil {
		return nil, err
	}
	resp.TopProducts = toProductSales(top)
	return resp, nil
}

func (s *dashboardService) compute(ctx context.Context, owner uuid.UUID, day string, today, month repository.DateRange) (*dto.DashboardMetrics, error) {
	m := &dto.DashboardMetrics{Date: day}
	var err error
	if m.TodaySales, err = s.sales.SumTotal(ctx, owner, today, false); err != nil {
		return nil, err
	}
	if m.MonthSales, err = s.sales.SumTotal(ctx, owner, month, false); err != nil {
		return nil, err
	}
	if m.TodayCredit, err = s.sales.SumTotal(ctx, owner, today, true); err != nil {
		return nil, err
	}
	if m.TotalCustomers, err = s.customers.Count(ctx, owner); err != nil {
		return nil, err
	}
	if m.TotalProducts, err = s.products.CountActive(ctx, owner); err != nil {
		return nil, err
	}
	if m.TotalCredit, err = s.customers.SumCredit(ctx, owner); err != nil {
		return nil, err
	}
	m.TodaySales = m.TodaySales.Round(2)
	m.MonthSales = m.MonthSales.Round(2)
	m.TodayCredit = m.TodayCredit.Round(2)
	m.TotalCredit = m.TotalCredit.Round(2)
	return m, nil
}
