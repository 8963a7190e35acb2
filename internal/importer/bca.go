package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// BCAParser parses the account-mutation CSV exported by BCA internet
// banking. The export starts with an account preamble, lists rows dated
// 'DD/MM without a year, marks each amount CR or DB, and ends with a balance
// summary. Pending rows (PEND) are not yet booked and are skipped.
type BCAParser struct{}

const (
	bcaColDate   = 0
	bcaColDesc   = 1
	bcaColAmount = 3
	bcaColSide   = 4
	bcaMinFields = 5

	bcaHeader  = "Tanggal Transaksi"
	bcaPeriod  = "Periode"
	bcaPending = "PEND"
)

// Trailer lines after the last mutation.
var bcaTrailers = []string{"Saldo Awal", "Mutasi Kredit", "Mutasi Debet", "Saldo Akhir"}

// Format returns the parser name.
func (p *BCAParser) Format() string { return "bca" }

// Parse reads a BCA export. The statement period in the preamble supplies
// the year of each row.
func (p *BCAParser) Parse(r io.Reader) ([]StatementLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bca CSV: %w", err)
	}

	var (
		periodEnd civil.Date
		inBody    bool
		lines     []StatementLine
	)
	for i, rec := range records {
		first := strings.TrimSpace(rec[0])
		switch {
		case !inBody && strings.HasPrefix(first, bcaPeriod):
			periodEnd, err = parseBCAPeriod(first)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			continue
		case !inBody && strings.HasPrefix(first, bcaHeader):
			if periodEnd == (civil.Date{}) {
				return nil, fmt.Errorf("row %d: statement period missing before header", i+1)
			}
			inBody = true
			continue
		case !inBody || first == "":
			continue
		case isBCATrailer(first):
			uniqueRefs(lines)
			return lines, nil
		}

		if strings.TrimPrefix(first, "'") == bcaPending {
			continue
		}
		if len(rec) < bcaMinFields {
			return nil, fmt.Errorf("row %d: expected at least %d fields, got %d", i+1, bcaMinFields, len(rec))
		}
		l, err := parseBCARow(rec, periodEnd)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		l.Reference = makeRef(p.Format(), l.Date, l.Description)
		lines = append(lines, l)
	}
	if !inBody {
		return nil, fmt.Errorf("bca CSV: %q header not found", bcaHeader)
	}
	uniqueRefs(lines)
	return lines, nil
}

func parseBCARow(rec []string, periodEnd civil.Date) (StatementLine, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(rec[bcaColDate]), "'")
	day, month, ok := strings.Cut(raw, "/")
	if !ok {
		return StatementLine{}, fmt.Errorf("parsing date %q", raw)
	}
	d, err1 := strconv.Atoi(day)
	m, err2 := strconv.Atoi(month)
	if err1 != nil || err2 != nil {
		return StatementLine{}, fmt.Errorf("parsing date %q", raw)
	}
	// A January statement can carry late-December rows.
	year := periodEnd.Year
	if time.Month(m) > periodEnd.Month {
		year--
	}
	date := civil.Date{Year: year, Month: time.Month(m), Day: d}
	if !date.IsValid() {
		return StatementLine{}, fmt.Errorf("invalid date %q", raw)
	}

	amountText := strings.ReplaceAll(strings.TrimSpace(rec[bcaColAmount]), ",", "")
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return StatementLine{}, fmt.Errorf("parsing amount %q: %w", rec[bcaColAmount], err)
	}
	switch side := strings.ToUpper(strings.TrimSpace(rec[bcaColSide])); side {
	case "CR":
	case "DB":
		amount = amount.Neg()
	default:
		return StatementLine{}, fmt.Errorf("unknown mutation side %q", side)
	}

	return StatementLine{
		Date:        date,
		Description: strings.Join(strings.Fields(rec[bcaColDesc]), " "),
		Amount:      amount,
	}, nil
}

// parseBCAPeriod reads "Periode : =01/01/2025 - 31/01/2025" and returns the
// end date.
func parseBCAPeriod(line string) (civil.Date, error) {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return civil.Date{}, fmt.Errorf("parsing period %q", line)
	}
	_, end, ok := strings.Cut(value, "-")
	if !ok {
		return civil.Date{}, fmt.Errorf("parsing period %q", line)
	}
	t, err := time.Parse("02/01/2006", strings.TrimSpace(end))
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing period end %q: %w", end, err)
	}
	return civil.DateOf(t), nil
}

func isBCATrailer(s string) bool {
	for _, t := range bcaTrailers {
		if strings.HasPrefix(s, t) {
			return true
		}
	}
	return false
}
