package services

import (
	"mystore/internal/models"

	"github.com/shopspring/decimal"
)

// Column precisions: prices and unit prices are decimal(10,2), subtotals and order
// totals decimal(12,2).
const (
	moneyPlaces  = 2
	priceDigits  = 10
	amountDigits = 12
)

// checkMoney rejects negative values, more than two fractional digits, and values that
// would overflow a decimal(maxDigits,2) column.
func checkMoney(field string, d decimal.Decimal, maxDigits int32) error {
	if d.IsNegative() {
		return validationf("%s cannot be negative", field)
	}
	if !d.Equal(d.Round(moneyPlaces)) {
		return validationf("%s must have at most %d decimal places", field, moneyPlaces)
	}
	if d.GreaterThanOrEqual(decimal.New(1, maxDigits-moneyPlaces)) {
		return validationf("%s must have at most %d digits", field, maxDigits)
	}
	return nil
}

// ComputeTotal sums the item subtotals, clamped at zero.
func ComputeTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// priceItem snapshots unitPrice onto item and validates the result.
func priceItem(item *models.OrderItem, unitPrice decimal.Decimal) error {
	if err := checkMoney("unit price", unitPrice, priceDigits); err != nil {
		return err
	}
	item.Price(unitPrice)
	return checkMoney("subtotal", item.Subtotal, amountDigits)
}
