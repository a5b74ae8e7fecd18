package service

import (
	"context"
	"io"
	"sort"
	"time"

	"subhlabh/internal/dto"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reportTopN = 10

type ReportService interface {
	Build(ctx context.Context, owner uuid.UUID, filter dto.ReportFilter) (*dto.ReportResponse, error)
	// Export writes one section of the report (filter.Report) as CSV.
	Export(ctx context.Context, owner uuid.UUID, filter dto.ReportFilter, w io.Writer) error
}

type reportService struct {
	reports repository.ReportRepository
	sales   repository.SaleRepository
	clock   *Clock
}

func NewReportService(reports repository.ReportRepository, sales repository.SaleRepository, clock *Clock) ReportService {
	return &reportService{reports: reports, sales: sales, clock: clock}
}

func (s *reportService) Export(ctx context.Context, owner uuid.UUID, filter dto.ReportFilter, w io.Writer) error {
	resp, err := s.Build(ctx, owner, filter)
	if err != nil {
		return err
	}
	return writeReportCSV(w, resp, filter.Report)
}

func (s *reportService) Build(ctx context.Context, owner uuid.UUID, filter dto.ReportFilter) (*dto.ReportResponse, error) {
	loc := s.clock.Location(ctx, owner)
	dr, err := parseDayRange(filter.DateFrom, filter.DateTo, loc)
	if err != nil {
		return nil, err
	}
	if filter.Year != 0 {
		dr = intersect(dr, yearRange(filter.Year, loc))
	}

	resp := &dto.ReportResponse{
		DateFrom:      filter.DateFrom,
		DateTo:        filter.DateTo,
		Year:          filter.Year,
		TotalRevenue:  decimal.Zero,
		TotalDiscount: decimal.Zero,
	}

	rows, err := s.reports.SaleTotals(ctx, owner, dr)
	if err != nil {
		return nil, err
	}
	daily, monthly, yearly := newBuckets(), newBuckets(), newBuckets()
	for _, r := range rows {
		t := r.SaleDate.In(loc)
		daily.add(t.Format("2006-01-02"), r.TotalAmount)
		monthly.add(t.Format("2006-01"), r.TotalAmount)
		yearly.add(t.Format("2006"), r.TotalAmount)
		resp.TotalRevenue = resp.TotalRevenue.Add(r.TotalAmount)
		resp.TotalDiscount = resp.TotalDiscount.Add(r.DiscountAmount)
	}
	resp.SaleCount = int64(len(rows))
	resp.TotalRevenue = resp.TotalRevenue.Round(2)
	resp.TotalDiscount = resp.TotalDiscount.Round(2)
	resp.Daily, resp.Monthly, resp.Yearly = daily.series(), monthly.series(), yearly.series()

	top, err := s.reports.TopProducts(ctx, owner, dr, reportTopN)
	if err != nil {
		return nil, err
	}
	resp.TopProducts = toProductSales(top)

	cats, err := s.reports.Categories(ctx, owner, dr)
	if err != nil {
		return nil, err
	}
	resp.Categories = make([]dto.CategorySales, len(cats))
	for i, c := range cats {
		resp.Categories[i] = dto.CategorySales{Category: c.Category, Quantity: c.Quantity, Revenue: c.Revenue.Round(2)}
	}

	custs, err := s.reports.TopCustomers(ctx, owner, dr, reportTopN)
	if err != nil {
		return nil, err
	}
	resp.TopCustomers = make([]dto.CustomerSales, len(custs))
	for i, c := range custs {
		resp.TopCustomers[i] = dto.CustomerSales{
			CustomerID: c.CustomerID.String(),
			Name:       c.Name,
			Phone:      c.Phone,
			SaleCount:  c.SaleCount,
			Amount:     c.Amount.Round(2),
		}
	}

	usage, err := s.reports.OfferUsage(ctx, owner, dr)
	if err != nil {
		return nil, err
	}
	resp.Offers = make([]dto.OfferUsage, len(usage))
	for i, u := range usage {
		resp.Offers[i] = dto.OfferUsage{
			OfferID:       u.OfferID.String(),
			Name:          u.Name,
			OfferType:     u.OfferType,
			TimesApplied:  u.TimesApplied,
			TotalDiscount: u.TotalDiscount.Round(2),
		}
	}

	if resp.AvailableYears, err = s.availableYears(ctx, owner, loc); err != nil {
		return nil, err
	}
	if resp.Comparison, err = s.comparison(ctx, owner, loc); err != nil {
		return nil, err
	}
	return resp, nil
}

// availableYears lists every year from the last sale back to the first.
func (s *reportService) availableYears(ctx context.Context, owner uuid.UUID, loc *time.Location) ([]int, error) {
	first, last, err := s.reports.SaleDateBounds(ctx, owner)
	if err != nil {
		return nil, err
	}
	years := []int{}
	if first == nil || last == nil {
		return years, nil
	}
	for y := last.In(loc).Year(); y >= first.In(loc).Year(); y-- {
		years = append(years, y)
	}
	return years, nil
}

func (s *reportService) comparison(ctx context.Context, owner uuid.UUID, loc *time.Location) (dto.Comparison, error) {
	today := startOfDay(s.clock.Now(), loc)
	var c dto.Comparison
	var err error
	if c.Today, err = s.sales.SumTotal(ctx, owner, dayRange(today, 1), false); err != nil {
		return c, err
	}
	if c.Yesterday, err = s.sales.SumTotal(ctx, owner, dayRange(today.AddDate(0, 0, -1), 1), false); err != nil {
		return c, err
	}
	if c.Last7Days, err = s.sales.SumTotal(ctx, owner, dayRange(today.AddDate(0, 0, -6), 7), false); err != nil {
		return c, err
	}
	c.Today, c.Yesterday, c.Last7Days = c.Today.Round(2), c.Yesterday.Round(2), c.Last7Days.Round(2)
	c.ChangePercent = changePercent(c.Today, c.Yesterday)
	return c, nil
}

// changePercent is the day-over-day change. With no sales yesterday any sale
// today counts as +100%.
func changePercent(today, yesterday decimal.Decimal) decimal.Decimal {
	if yesterday.IsPositive() {
		return today.Sub(yesterday).Div(yesterday).Mul(hundred).Round(2)
	}
	if today.IsPositive() {
		return hundred
	}
	return decimal.Zero
}

// ── Buckets ───────────────────────────────────────────────────────────────────

type buckets map[string]*dto.PeriodTotal

func newBuckets() buckets { return buckets{} }

func (b buckets) add(period string, amount decimal.Decimal) {
	pt, ok := b[period]
	if !ok {
		pt = &dto.PeriodTotal{Period: period, Total: decimal.Zero}
		b[period] = pt
	}
	pt.Total = pt.Total.Add(amount)
	pt.Count++
}

func (b buckets) series() []dto.PeriodTotal {
	out := make([]dto.PeriodTotal, 0, len(b))
	for _, pt := range b {
		pt.Total = pt.Total.Round(2)
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
