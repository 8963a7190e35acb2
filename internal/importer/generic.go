package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// GenericParser reads a plain date,description,amount CSV with ISO dates
// and signed amounts. An optional fourth column carries the bank reference.
type GenericParser struct{}

const (
	genericColDate = iota
	genericColDesc
	genericColAmount
	genericColRef
)

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads the CSV, skipping the header row.
func (p *GenericParser) Parse(r io.Reader) ([]StatementLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading generic CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var lines []StatementLine
	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("row %d: expected at least 3 fields, got %d", i+2, len(rec))
		}
		date, err := civil.ParseDate(strings.TrimSpace(rec[genericColDate]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, rec[genericColDate], err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[genericColAmount]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, rec[genericColAmount], err)
		}

		l := StatementLine{
			Date:        date,
			Description: strings.TrimSpace(rec[genericColDesc]),
			Amount:      amount,
		}
		if len(rec) > genericColRef {
			l.Reference = strings.TrimSpace(rec[genericColRef])
		}
		if l.Reference == "" {
			l.Reference = makeRef(p.Format(), date, l.Description)
		}
		lines = append(lines, l)
	}
	uniqueRefs(lines)
	return lines, nil
}
