package charter

import (
	"math"
	"strings"
	"time"
)

// ChargeItems are the line items that make up the charter total.
var ChargeItems = []string{
	"charterFee",
	"provisioning",
	"nationalParksFee",
	"cruisingPermit",
	"fuelSurcharge",
	"visarDonation",
	"hotel",
	"instructorFee",
}

// Totals holds the derived pricing values.
type Totals struct {
	TotalAmount float64 `json:"totalAmount"`
	BalanceDue  float64 `json:"balanceDue"`
}

// RecomputeCharges sums the charge items; missing items count as zero.
// The balance never goes below zero.
func RecomputeCharges(items map[string]float64, deposit float64) Totals {
	var total float64
	for _, name := range ChargeItems {
		total += items[name]
	}
	return Totals{TotalAmount: total, BalanceDue: math.Max(total-deposit, 0)}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RecomputeNights returns the whole days between two dates. ok is false when
// either date is missing or unparseable or when end precedes start, in which
// case the caller keeps the stored value.
func RecomputeNights(start, end string) (nights int, ok bool) {
	from, ok1 := parseDate(start)
	to, ok2 := parseDate(end)
	if !ok1 || !ok2 {
		return 0, false
	}
	n := math.Round(to.Sub(from).Hours() / 24)
	if n < 0 {
		return 0, false
	}
	return int(n), true
}

// ApplyDerived recomputes totalAmount, balanceDue and, when the charter
// dates allow it, totalNights on the form in place.
func ApplyDerived(form Fields) {
	items := make(map[string]float64, len(ChargeItems))
	for _, name := range ChargeItems {
		items[name] = form.Number(name)
	}
	t := RecomputeCharges(items, form.Number("depositDue"))
	form["totalAmount"] = t.TotalAmount
	form["balanceDue"] = t.BalanceDue

	if n, ok := RecomputeNights(form.Text("charterFromDate"), form.Text("charterToDate")); ok {
		form["totalNights"] = float64(n)
	}
}
