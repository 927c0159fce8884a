package domain

import "math"

type ItemInput struct {
	Title string
	Qty   float64
	Rate  int64
}

type Totals struct {
	Subtotal  int64
	GSTAmount int64
	Total     int64
}

// ItemAmount is qty x rate rounded to the paisa.
func ItemAmount(qty float64, rate int64) int64 {
	return int64(math.Round(qty * float64(rate)))
}

// ComputeTotals sums line amounts and applies gstPercent, rounding GST to the
// paisa.
func ComputeTotals(items []ItemInput, gstPercent float64) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += ItemAmount(item.Qty, item.Rate)
	}
	gst := int64(math.Round(float64(subtotal) * gstPercent / 100))
	return Totals{Subtotal: subtotal, GSTAmount: gst, Total: subtotal + gst}
}
