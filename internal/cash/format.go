package cash

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatCash renders an amount with thousands separators.
func formatCash(amount int) string {
	return printer.Sprintf("%d", amount)
}

// formatDelta renders a signed difference with thousands separators. Zero is
// shown as +0 so the sign always matches the arithmetic sign.
func formatDelta(delta int) string {
	if delta < 0 {
		return "-" + printer.Sprintf("%d", -delta)
	}
	return "+" + printer.Sprintf("%d", delta)
}
