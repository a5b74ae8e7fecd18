package service

import (
	"fmt"

	"subhlabh/internal/apierror"
	"subhlabh/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// pricedLine is a cart line after prices have been resolved.
type pricedLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	Price     decimal.Decimal
}

func (l pricedLine) subtotal() decimal.Decimal { return l.Quantity.Mul(l.Price) }

func itemsTotal(lines []pricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.subtotal())
	}
	return total.Round(2)
}

// computeDiscount returns the discount o grants on lines, rounded to paise and
// never more than the cart total. The caller checks validity at the current time.
//
//   - flat:       DiscountValue off the cart
//   - percentage: DiscountValue% of the eligible subtotal
//   - bogo:       per eligible line, every BuyQuantity+GetQuantity units include
//     GetQuantity free units, priced at the line price
func computeDiscount(o *model.Offer, lines []pricedLine) (decimal.Decimal, error) {
	total := itemsTotal(lines)
	if total.LessThan(o.MinPurchaseAmount) {
		return decimal.Zero, apierror.Business(fmt.Sprintf(
			"offer %q needs a minimum purchase of %s", o.Name, o.MinPurchaseAmount.StringFixed(2)))
	}

	var discount decimal.Decimal
	switch o.OfferType {
	case model.OfferFlat:
		discount = o.DiscountValue

	case model.OfferPercentage:
		eligible := decimal.Zero
		for _, l := range lines {
			if o.AppliesTo(l.ProductID) {
				eligible = eligible.Add(l.subtotal())
			}
		}
		discount = eligible.Mul(o.DiscountValue).Div(hundred)

	case model.OfferBOGO:
		if o.BuyQuantity <= 0 || o.GetQuantity <= 0 {
			return decimal.Zero, apierror.Business(fmt.Sprintf("offer %q is misconfigured", o.Name))
		}
		group := decimal.NewFromInt(int64(o.BuyQuantity + o.GetQuantity))
		get := decimal.NewFromInt(int64(o.GetQuantity))
		discount = decimal.Zero
		for _, l := range lines {
			if !o.AppliesTo(l.ProductID) {
				continue
			}
			groups := l.Quantity.Div(group).Floor()
			discount = discount.Add(groups.Mul(get).Mul(l.Price))
		}

	default:
		return decimal.Zero, apierror.Business(fmt.Sprintf("offer %q has an unknown type", o.Name))
	}

	discount = discount.Round(2)
	if discount.GreaterThan(total) {
		discount = total
	}
	if !discount.IsPositive() {
		return decimal.Zero, apierror.Business(fmt.Sprintf("offer %q does not apply to the items in this cart", o.Name))
	}
	return discount, nil
}
