package booking

import (
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

// BusinessMinimumQuantity is the smallest cohort a company can book.
const BusinessMinimumQuantity = 25

var (
    businessDiscoveryPrice = decimal.NewFromInt(50)
    institutionalDiscount  = decimal.NewFromInt(20)
)

// ResolveUnitPrice picks the per-head price of a workshop for a booker.
//
//  ENTREPRISE, level 0   flat 50 € (discovery for companies)
//  ENTREPRISE, level > 0 price_institutional, else price
//  PARTICULIER, PRO/CE   price_institutional, else price - 20 (floored at 0)
//  PARTICULIER, public   price
func ResolveUnitPrice(w model.Workshop, bookerInstitutional bool) decimal.Decimal {
    if w.IsBusiness() {
        if w.Level == 0 {
            return businessDiscoveryPrice
        }
        if w.PriceInstitutional.IsPositive() {
            return w.PriceInstitutional
        }
        return w.Price
    }
    if !bookerInstitutional {
        return w.Price
    }
    if w.PriceInstitutional.IsPositive() {
        return w.PriceInstitutional
    }
    p := w.Price.Sub(institutionalDiscount)
    if p.IsNegative() {
        return decimal.Zero
    }
    return p
}
