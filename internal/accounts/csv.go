package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const (
	numFields  = 7
	colCode    = 0
	colName    = 1
	colType    = 2
	colKind    = 3
	colParent  = 4
	colIsGroup = 5
	colDesc    = 6
)

// Header is the CSV header of a chart-of-accounts file.
var Header = []string{"code", "name", "type", "kind", "parent_code", "is_group", "description"}

// ReadRows reads a chart-of-accounts CSV.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes a chart-of-accounts CSV.
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colCode] = row.Code
	rec[colName] = row.Name
	rec[colType] = string(row.Type)
	rec[colKind] = string(row.Kind)
	rec[colParent] = row.ParentCode
	rec[colIsGroup] = strconv.FormatBool(row.IsGroup)
	rec[colDesc] = row.Description
	return rec
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	typ := model.AccountType(record[colType])
	if !typ.Valid() {
		return Row{}, fmt.Errorf("unknown account type %q", record[colType])
	}

	kind := model.AccountKind(record[colKind])
	if !kind.Valid() {
		return Row{}, fmt.Errorf("unknown account kind %q", record[colKind])
	}

	var isGroup bool
	if record[colIsGroup] != "" {
		var err error
		isGroup, err = strconv.ParseBool(record[colIsGroup])
		if err != nil {
			return Row{}, fmt.Errorf("parsing is_group %q: %w", record[colIsGroup], err)
		}
	}

	return Row{
		Code:        record[colCode],
		Name:        record[colName],
		Type:        typ,
		Kind:        kind,
		ParentCode:  record[colParent],
		IsGroup:     isGroup,
		Description: record[colDesc],
	}, nil
}

// RowsFromChart converts bound accounts back to rows, parents first.
func RowsFromChart(c *Chart) []Row {
	var rows []Row
	var walk func(a model.Account, parentCode string)
	walk = func(a model.Account, parentCode string) {
		rows = append(rows, Row{
			Code:        a.Code,
			Name:        a.Name,
			Type:        a.Type,
			Kind:        a.Kind,
			ParentCode:  parentCode,
			IsGroup:     a.IsGroup,
			Description: a.Description,
		})
		for _, child := range c.Children(a.ID) {
			walk(child, a.Code)
		}
	}
	for _, r := range c.Roots() {
		walk(r, "")
	}
	return rows
}
