package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount with digit grouping and the currency mark
// used on every operator screen, e.g. 125000 -> "₹125,000".
func FormatMoney(amount int) string {
	return moneyPrinter.Sprintf("₹%d", amount)
}
