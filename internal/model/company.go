package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// Company is a bookkeeping entity. Every ledger record is scoped to one.
type Company struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Address         string     `json:"address,omitempty"`
	TaxID           string     `json:"tax_id,omitempty"`
	Currency        string     `json:"currency"`
	FiscalYearStart int        `json:"fiscal_year_start"`     // month, 1..12
	LockedUntil     civil.Date `json:"locked_until,omitzero"` // zero = nothing locked
	CreatedAt       time.Time  `json:"created_at"`
}

// Locked reports whether d falls inside the closed period.
func (c Company) Locked(d civil.Date) bool {
	if c.LockedUntil == (civil.Date{}) {
		return false
	}
	return !d.After(c.LockedUntil)
}

// FiscalYearStartFor returns the first day of the fiscal year that contains d.
func (c Company) FiscalYearStartFor(d civil.Date) civil.Date {
	month := time.Month(c.FiscalYearStart)
	if month < time.January || month > time.December {
		month = time.January
	}
	start := civil.Date{Year: d.Year, Month: month, Day: 1}
	if start.After(d) {
		start.Year--
	}
	return start
}
