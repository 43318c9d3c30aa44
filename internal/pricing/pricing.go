// Package pricing computes deterministic room prices.  Prices are always
// recomputed on the server; nothing in this package accepts a client price.
package pricing

import "time"

// hotelPct and demandPct are percentage multipliers indexed by
// hotelID mod len(hotelPct) and dayOfYear mod len(demandPct).
var (
	hotelPct  = [...]int64{100, 110, 120, 135, 150}
	demandPct = [...]int64{90, 100, 100, 110, 120, 130, 115}
)

// Calculator holds the configured price floor and the per-person rate.
type Calculator struct {
	BasePrice      int64
	PerPersonPrice int64
}

// New returns a Calculator.  Negative inputs are clamped to zero.
func New(basePrice, perPersonPrice int64) Calculator {
	if basePrice < 0 {
		basePrice = 0
	}
	if perPersonPrice < 0 {
		perPersonPrice = 0
	}
	return Calculator{BasePrice: basePrice, PerPersonPrice: perPersonPrice}
}

// NightlyPrice returns the price of one room for the night starting on date.
// The result never drops below BasePrice.
func (c Calculator) NightlyPrice(capacity int, hotelID uint64, date time.Time) int64 {
	if capacity < 0 {
		capacity = 0
	}
	h := hotelPct[hotelID%uint64(len(hotelPct))]
	d := demandPct[uint64(date.YearDay())%uint64(len(demandPct))]
	p := c.PerPersonPrice * int64(capacity) * h * d / 10000
	if p < c.BasePrice {
		return c.BasePrice
	}
	return p
}

// StayTotal sums NightlyPrice over every night in [checkIn, checkOut).
// An empty or inverted range costs zero.
func (c Calculator) StayTotal(capacity int, hotelID uint64, checkIn, checkOut time.Time) int64 {
	var total int64
	for d := DateOnly(checkIn); d.Before(DateOnly(checkOut)); d = d.AddDate(0, 0, 1) {
		total += c.NightlyPrice(capacity, hotelID, d)
	}
	return total
}

// Nights counts the nights between two dates.
func Nights(checkIn, checkOut time.Time) int {
	in, out := DateOnly(checkIn), DateOnly(checkOut)
	if !out.After(in) {
		return 0
	}
	return int(out.Sub(in).Hours()/24 + 0.5)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
