// Package numbering formats and parses transaction numbers.
//
// A number looks like "JU-2025-01-0001": the transaction type, the year and
// month of the transaction date, and a sequence that restarts every month for
// each (company, type) pair.
package numbering

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// MaxSeq is the largest sequence a single period can hold.
const MaxSeq = 9999

// Number is a parsed transaction number.
type Number struct {
	Type  model.TransactionType
	Year  int
	Month int
	Seq   int
}

// String formats n.
func (n Number) String() string {
	return Format(n.Type, n.Year, n.Month, n.Seq)
}

// Period returns the "YYYY-MM" key the sequence counts within.
func (n Number) Period() string {
	return Period(n.Year, n.Month)
}

// Format returns a number like "JU-2025-01-0001".
func Format(typ model.TransactionType, year, month, seq int) string {
	return fmt.Sprintf("%s-%04d-%02d-%04d", typ, year, month, seq)
}

// Period returns the sequence period key for a year and month.
func Period(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Parse parses "JU-2025-01-0001".
func Parse(s string) (Number, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return Number{}, fmt.Errorf("invalid transaction number format: %q", s)
	}

	typ := model.TransactionType(parts[0])
	if !typ.Valid() {
		return Number{}, fmt.Errorf("invalid type in transaction number %q", s)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Number{}, fmt.Errorf("invalid year in transaction number %q: %w", s, err)
	}

	month, err := strconv.Atoi(parts[2])
	if err != nil {
		return Number{}, fmt.Errorf("invalid month in transaction number %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return Number{}, fmt.Errorf("month out of range in transaction number %q", s)
	}

	seq, err := strconv.Atoi(parts[3])
	if err != nil {
		return Number{}, fmt.Errorf("invalid sequence in transaction number %q: %w", s, err)
	}
	if seq < 1 {
		return Number{}, fmt.Errorf("sequence out of range in transaction number %q", s)
	}

	return Number{Type: typ, Year: year, Month: month, Seq: seq}, nil
}
