package service

import (
	"time"

	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"

	"github.com/shopspring/decimal"
)

func toCustomerResponse(c *model.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:             c.ID.String(),
		Name:           c.Name,
		Phone:          c.Phone,
		Email:          c.Email,
		Address:        c.Address,
		CreditAmount:   c.CreditAmount,
		TotalPurchased: c.TotalPurchased,
		TotalVisits:    c.TotalVisits,
		CreatedAt:      c.CreatedAt,
	}
}

func toProductResponse(p *model.Product, threshold decimal.Decimal) dto.ProductResponse {
	return dto.ProductResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		ProductType:   p.ProductType,
		Category:      p.Category,
		Description:   p.Description,
		Price:         p.Price,
		Unit:          p.Unit,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
		IsLowStock:    p.IsLowStock(threshold),
		CreatedAt:     p.CreatedAt,
	}
}

func toSaleListItem(s *model.Sale) dto.SaleListItem {
	item := dto.SaleListItem{
		ID:             s.ID.String(),
		CustomerName:   "Walk-in",
		TotalAmount:    s.TotalAmount,
		DiscountAmount: s.DiscountAmount,
		PaymentMethod:  s.PaymentMethod,
		IsPaid:         s.IsPaid,
		AddedToUdhar:   s.AddedToUdhar,
		ItemCount:      len(s.Items),
		SaleDate:       s.SaleDate,
	}
	if s.CustomerID != nil {
		id := s.CustomerID.String()
		item.CustomerID = &id
	}
	if s.Customer != nil {
		item.CustomerName = s.Customer.Name
	}
	return item
}

func toSaleListItems(sales []model.Sale) []dto.SaleListItem {
	out := make([]dto.SaleListItem, len(sales))
	for i := range sales {
		out[i] = toSaleListItem(&sales[i])
	}
	return out
}

func toSaleDetail(s *model.Sale) *dto.SaleDetailResponse {
	resp := &dto.SaleDetailResponse{
		SaleListItem: toSaleListItem(s),
		Notes:        s.Notes,
		Items:        make([]dto.SaleItemResponse, len(s.Items)),
		Offers:       make([]dto.SaleOfferResponse, len(s.Offers)),
	}
	for i := range s.Items {
		it := &s.Items[i]
		r := dto.SaleItemResponse{
			ProductID:   it.ProductID.String(),
			Quantity:    it.Quantity,
			PriceAtSale: it.PriceAtSale,
			Subtotal:    it.Subtotal(),
		}
		if it.Product != nil {
			r.ProductName = it.Product.Name
			r.ProductType = it.Product.ProductType
		}
		resp.Items[i] = r
	}
	for i := range s.Offers {
		so := &s.Offers[i]
		r := dto.SaleOfferResponse{OfferID: so.OfferID.String(), DiscountAmount: so.DiscountAmount}
		if so.Offer != nil {
			r.OfferName = so.Offer.Name
		}
		resp.Offers[i] = r
	}
	return resp
}

func toOfferResponse(o *model.Offer, now time.Time) dto.OfferResponse {
	refs := make([]dto.OfferProductRef, len(o.ApplicableProducts))
	for i, p := range o.ApplicableProducts {
		refs[i] = dto.OfferProductRef{ID: p.ID.String(), Name: p.Name}
	}
	return dto.OfferResponse{
		ID:                 o.ID.String(),
		Name:               o.Name,
		Description:        o.Description,
		OfferType:          o.OfferType,
		DiscountValue:      o.DiscountValue,
		MinPurchaseAmount:  o.MinPurchaseAmount,
		BuyQuantity:        o.BuyQuantity,
		GetQuantity:        o.GetQuantity,
		ApplicableProducts: refs,
		StartDate:          o.StartDate,
		EndDate:            o.EndDate,
		IsActive:           o.IsActive,
		IsValid:            o.IsValidAt(now),
	}
}

func toProductSales(rows []repository.ProductSalesRow) []dto.ProductSales {
	out := make([]dto.ProductSales, len(rows))
	for i, r := range rows {
		out[i] = dto.ProductSales{
			ProductID: r.ProductID.String(),
			Name:      r.Name,
			Quantity:  r.Quantity,
			Revenue:   r.Revenue.Round(2),
		}
	}
	return out
}
