package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"subhlabh/internal/dto"
	"subhlabh/internal/model"

	"github.com/shopspring/decimal"
)

const walkInName = "Walk-in Customer"

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// writeSalesCSV writes one row per sale item; sale columns repeat on every
// row of the same sale. Times are shown in loc.
func writeSalesCSV(w io.Writer, sales []model.Sale, loc *time.Location) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Sale ID", "Date", "Time", "Customer Name", "Customer Phone",
		"Payment Method", "Payment Status", "Total Amount",
		"Product Name", "Quantity", "Unit", "Price Per Unit", "Item Total", "Notes",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range sales {
		sale := &sales[i]
		at := sale.SaleDate.In(loc)
		name, phone := walkInName, ""
		if sale.Customer != nil {
			name, phone = sale.Customer.Name, sale.Customer.Phone
		}
		status := "Paid"
		if !sale.IsPaid {
			status = "Udhar"
		}
		for _, item := range sale.Items {
			product, unit := "", ""
			if item.Product != nil {
				product, unit = item.Product.Name, item.Product.Unit
			}
			err := cw.Write([]string{
				sale.ID.String(), at.Format("2006-01-02"), at.Format("15:04:05"), name, phone,
				sale.PaymentMethod, status, money(sale.TotalAmount),
				product, item.Quantity.String(), unit, money(item.PriceAtSale), money(item.Subtotal()), sale.Notes,
			})
			if err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeProductsCSV(w io.Writer, products []model.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Type", "Category", "Price", "Unit", "Stock Quantity"}); err != nil {
		return err
	}
	for _, p := range products {
		stock := p.StockQuantity.StringFixed(2)
		if !p.TracksStock() {
			stock = ""
		}
		if err := cw.Write([]string{p.Name, p.ProductType, p.Category, money(p.Price), p.Unit, stock}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeReportCSV writes the named section of a built report. An empty
// section means monthly.
func writeReportCSV(w io.Writer, r *dto.ReportResponse, section string) error {
	var rows [][]string
	series := func(label string, buckets []dto.PeriodTotal) {
		rows = append(rows, []string{label, "Sales", "Sale Count"})
		for _, b := range buckets {
			rows = append(rows, []string{b.Period, money(b.Total), fmt.Sprint(b.Count)})
		}
	}

	switch section {
	case "", "monthly":
		series("Month", r.Monthly)
	case "daily":
		series("Date", r.Daily)
	case "yearly":
		series("Year", r.Yearly)
	case "products":
		rows = append(rows, []string{"Product", "Quantity Sold", "Revenue"})
		for _, p := range r.TopProducts {
			rows = append(rows, []string{p.Name, p.Quantity.String(), money(p.Revenue)})
		}
	case "categories":
		rows = append(rows, []string{"Category", "Quantity Sold", "Sales"})
		for _, c := range r.Categories {
			rows = append(rows, []string{c.Category, c.Quantity.String(), money(c.Revenue)})
		}
	case "customers":
		rows = append(rows, []string{"Customer", "Phone", "Total Purchases", "Amount Spent"})
		for _, c := range r.TopCustomers {
			rows = append(rows, []string{c.Name, c.Phone, fmt.Sprint(c.SaleCount), money(c.Amount)})
		}
	case "offers":
		rows = append(rows, []string{"Offer", "Type", "Times Used", "Total Discount"})
		for _, o := range r.Offers {
			rows = append(rows, []string{o.Name, o.OfferType, fmt.Sprint(o.TimesApplied), money(o.TotalDiscount)})
		}
	case "comparison":
		rows = append(rows,
			[]string{"Period", "Sales"},
			[]string{"Today", money(r.Comparison.Today)},
			[]string{"Yesterday", money(r.Comparison.Yesterday)},
			[]string{"Last 7 Days", money(r.Comparison.Last7Days)},
			[]string{"Change %", money(r.Comparison.ChangePercent)},
		)
	default:
		return fmt.Errorf("unknown report section %q", section)
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
