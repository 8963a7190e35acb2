package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bukubesar/internal/model"
)

func TestRecordRoundTrip(t *testing.T) {
	records := []Record{
		{Number: "KM-2025-01-0001", Date: civil.Date{Year: 2025, Month: time.January, Day: 15}, Type: model.TypeCashReceipt,
			Description: "Jasa konsultasi, Januari", Reference: "INV-001", Line: 1, AccountCode: "1-1100", Debit: d("150000"), Memo: "tunai"},
		{Number: "KM-2025-01-0001", Date: civil.Date{Year: 2025, Month: time.January, Day: 15}, Type: model.TypeCashReceipt,
			Description: "Jasa konsultasi, Januari", Reference: "INV-001", Line: 2, AccountCode: "4-1100", Credit: d("150000")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))
	assert.True(t, strings.HasPrefix(buf.String(), "number,date,type,description,reference,line,account_code,debit,credit,memo\n"))
	assert.Contains(t, buf.String(), ",150000.00,,tunai\n")

	got, err := ReadRecords(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range records {
		assert.Equal(t, records[i].Number, got[i].Number)
		assert.Equal(t, records[i].Date, got[i].Date)
		assert.Equal(t, records[i].Line, got[i].Line)
		assert.Equal(t, records[i].AccountCode, got[i].AccountCode)
		assert.True(t, records[i].Debit.Equal(got[i].Debit))
		assert.True(t, records[i].Credit.Equal(got[i].Credit))
		assert.Equal(t, records[i].Memo, got[i].Memo)
	}
}

func TestUnmarshalRecordErrors(t *testing.T) {
	base := []string{"JU-2025-01-0001", "2025-01-15", "JU", "x", "", "1", "1-1100", "10", "", ""}

	tests := []struct {
		name string
		col  int
		val  string
		want string
	}{
		{"date", colDate, "15/01/2025", "parsing date"},
		{"type", colType, "XX", "unknown transaction type"},
		{"line", colLine, "one", "parsing line"},
		{"debit", colDebit, "1.2.3", "parsing debit"},
		{"credit", colCredit, "abc", "parsing credit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := append([]string(nil), base...)
			row[tt.col] = tt.val
			_, err := UnmarshalRecord(row)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := UnmarshalRecord(base[:3])
	assert.Error(t, err)
}

func TestFromRecordsGroupsByNumber(t *testing.T) {
	jan15 := civil.Date{Year: 2025, Month: time.January, Day: 15}
	records := []Record{
		{Number: "A", Date: jan15, Type: model.TypeGeneral, Description: "first", AccountCode: "1-1100", Debit: d("10")},
		{Number: "B", Date: jan15, Type: model.TypeGeneral, Description: "second", AccountCode: "1-1100", Debit: d("5")},
		{Number: "A", Date: jan15, Type: model.TypeGeneral, Description: "first", AccountCode: "4-1100", Credit: d("10")},
		{Number: "B", Date: jan15, Type: model.TypeGeneral, Description: "second", AccountCode: "4-1100", Credit: d("5")},
	}

	txns, err := FromRecords(records, testChart(), 1)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "first", txns[0].Description)
	require.Len(t, txns[0].Details, 2)
	assert.Equal(t, 2, txns[0].Details[1].LineNo)
	assert.True(t, txns[1].TotalDebit.Equal(d("5")))
	assert.True(t, txns[1].Balanced())
}

func TestFromRecordsRejects(t *testing.T) {
	jan15 := civil.Date{Year: 2025, Month: time.January, Day: 15}

	_, err := FromRecords([]Record{{Number: "A", Date: jan15, Type: model.TypeGeneral, AccountCode: "9-9999"}}, testChart(), 1)
	assert.ErrorIs(t, err, model.ErrInvalid)

	_, err = FromRecords([]Record{
		{Number: "A", Date: jan15, Type: model.TypeGeneral, AccountCode: "1-1100", Debit: d("1")},
		{Number: "A", Date: jan15.AddDays(1), Type: model.TypeGeneral, AccountCode: "4-1100", Credit: d("1")},
	}, testChart(), 1)
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestToRecords(t *testing.T) {
	tx := txn(debit(acctCash, "10"), credit(acctRevenue, "10"))
	tx.Number = "JU-2025-01-0001"
	tx.Details[0].Description = "memo"

	records := ToRecords([]model.Transaction{tx}, testChart())
	require.Len(t, records, 2)
	assert.Equal(t, "1-1100", records[0].AccountCode)
	assert.Equal(t, "memo", records[0].Memo)
	assert.Equal(t, 2, records[1].Line)
}
