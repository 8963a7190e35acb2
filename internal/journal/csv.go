package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/model"
)

// Record is one journal line in the CSV exchange format. Lines of the same
// transaction share Number and the header fields.
type Record struct {
	Number      string
	Date        civil.Date
	Type        model.TransactionType
	Description string
	Reference   string
	Line        int
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Memo        string
}

// Header is the CSV header of a journal export.
var Header = []string{"number", "date", "type", "description", "reference", "line", "account_code", "debit", "credit", "memo"}

const (
	numFields      = 10
	colNumber      = 0
	colDate        = 1
	colType        = 2
	colDescription = 3
	colReference   = 4
	colLine        = 5
	colAccountCode = 6
	colDebit       = 7
	colCredit      = 8
	colMemo        = 9
)

// MarshalRecord converts a Record to a CSV row.
func MarshalRecord(r Record) []string {
	row := make([]string, numFields)
	row[colNumber] = r.Number
	row[colDate] = r.Date.String()
	row[colType] = string(r.Type)
	row[colDescription] = r.Description
	row[colReference] = r.Reference
	row[colLine] = strconv.Itoa(r.Line)
	row[colAccountCode] = r.AccountCode
	row[colDebit] = formatAmount(r.Debit)
	row[colCredit] = formatAmount(r.Credit)
	row[colMemo] = r.Memo
	return row
}

// UnmarshalRecord converts a CSV row to a Record.
func UnmarshalRecord(row []string) (Record, error) {
	if len(row) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	date, err := civil.ParseDate(row[colDate])
	if err != nil {
		return Record{}, fmt.Errorf("parsing date %q: %w", row[colDate], err)
	}

	typ := model.TransactionType(row[colType])
	if !typ.Valid() {
		return Record{}, fmt.Errorf("unknown transaction type %q", row[colType])
	}

	var line int
	if row[colLine] != "" {
		line, err = strconv.Atoi(row[colLine])
		if err != nil {
			return Record{}, fmt.Errorf("parsing line %q: %w", row[colLine], err)
		}
	}

	debit, err := parseAmount(row[colDebit])
	if err != nil {
		return Record{}, fmt.Errorf("parsing debit: %w", err)
	}
	credit, err := parseAmount(row[colCredit])
	if err != nil {
		return Record{}, fmt.Errorf("parsing credit: %w", err)
	}

	return Record{
		Number:      row[colNumber],
		Date:        date,
		Type:        typ,
		Description: row[colDescription],
		Reference:   row[colReference],
		Line:        line,
		AccountCode: row[colAccountCode],
		Debit:       debit,
		Credit:      credit,
		Memo:        row[colMemo],
	}, nil
}

// ReadRecords reads a journal CSV including its header row.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes a journal CSV with header.
func WriteRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToRecords flattens transactions into CSV records, resolving account IDs to codes.
func ToRecords(txns []model.Transaction, chart *accounts.Chart) []Record {
	var records []Record
	for _, t := range txns {
		for _, d := range t.Details {
			a, _ := chart.Get(d.AccountID)
			records = append(records, Record{
				Number:      t.Number,
				Date:        t.Date,
				Type:        t.Type,
				Description: t.Description,
				Reference:   t.Reference,
				Line:        d.LineNo,
				AccountCode: a.Code,
				Debit:       d.Debit,
				Credit:      d.Credit,
				Memo:        d.Description,
			})
		}
	}
	return records
}

// FromRecords groups records sharing a number into transactions, in file order.
// Numbers in the file only group lines; stored transactions get fresh numbers.
func FromRecords(records []Record, chart *accounts.Chart, companyID int64) ([]model.Transaction, error) {
	var txns []model.Transaction
	index := make(map[string]int)

	for i, r := range records {
		a, ok := chart.ByCode(r.AccountCode)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: unknown account code %q", model.ErrInvalid, i+2, r.AccountCode)
		}

		key := r.Number
		if key == "" {
			key = fmt.Sprintf("row-%d", i)
		}
		ti, seen := index[key]
		if !seen {
			txns = append(txns, model.Transaction{
				CompanyID:   companyID,
				Type:        r.Type,
				Date:        r.Date,
				Description: r.Description,
				Reference:   r.Reference,
			})
			ti = len(txns) - 1
			index[key] = ti
		} else if txns[ti].Date != r.Date || txns[ti].Type != r.Type {
			return nil, fmt.Errorf("%w: row %d: %s changes date or type mid-transaction", model.ErrInvalid, i+2, r.Number)
		}

		txns[ti].Details = append(txns[ti].Details, model.Detail{
			AccountID:   a.ID,
			Description: r.Memo,
			Debit:       r.Debit,
			Credit:      r.Credit,
		})
	}

	for i := range txns {
		txns[i].Recompute()
	}
	return txns, nil
}

func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
