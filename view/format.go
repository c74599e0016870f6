// Package view turns claim data into terminal text.
package view

import (
	"fmt"
	"math"

	"opd-claims/models"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 03:04 PM"
	placeholder    = "-"
)

// FormatAmount renders an amount as Indian rupees, e.g. ₹1,234.50.
func FormatAmount(d decimal.Decimal) string {
	minor := d.Shift(2).Round(0).IntPart()
	return money.New(minor, money.INR).Display()
}

// FormatOptionalAmount renders a nullable amount, using a dash for null.
func FormatOptionalAmount(d *decimal.Decimal) string {
	if d == nil {
		return placeholder
	}
	return FormatAmount(*d)
}

// FormatDate renders the calendar date of ts, e.g. Jan 15, 2024.
func FormatDate(ts models.Timestamp) string {
	if ts.IsZero() {
		return placeholder
	}
	return ts.Format(dateLayout)
}

// FormatDateTime renders ts with its time of day when the source carried
// one, and as a plain date otherwise.
func FormatDateTime(ts models.Timestamp) string {
	if ts.IsZero() {
		return placeholder
	}
	if !ts.HasTime {
		return ts.Format(dateLayout)
	}
	return ts.Format(dateTimeLayout)
}

// FormatPercent renders a [0,1] score as a whole percentage.
func FormatPercent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}
