package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType selects the journal a transaction belongs to and its number prefix.
type TransactionType string

const (
	TypeGeneral     TransactionType = "JU"
	TypeCashReceipt TransactionType = "KM"
	TypeCashPayment TransactionType = "KK"
	TypeSales       TransactionType = "PJ"
	TypePurchase    TransactionType = "PB"
	TypeAdjustment  TransactionType = "JP"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeGeneral, TypeCashReceipt, TypeCashPayment, TypeSales, TypePurchase, TypeAdjustment:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusDraft  TransactionStatus = "draft"
	StatusPosted TransactionStatus = "posted"
)

// Transaction is a journal entry header. Its details are the debit/credit lines.
type Transaction struct {
	ID          int64             `json:"id"`
	CompanyID   int64             `json:"company_id"`
	Number      string            `json:"number"`
	Type        TransactionType   `json:"type"`
	Date        civil.Date        `json:"date"`
	Description string            `json:"description"`
	Reference   string            `json:"reference,omitempty"`
	PartnerID   int64             `json:"partner_id,omitempty"`
	Status      TransactionStatus `json:"status"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	ReversalOf  int64             `json:"reversal_of,omitempty"`
	CreatedBy   string            `json:"created_by"`
	PostedBy    string            `json:"posted_by,omitempty"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Details     []Detail          `json:"details"`
}

// Detail is one debit or credit line of a transaction.
type Detail struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	LineNo        int             `json:"line_no"`
	AccountID     int64           `json:"account_id"`
	PartnerID     int64           `json:"partner_id,omitempty"`
	ItemID        int64           `json:"item_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Description   string          `json:"description,omitempty"`
	Debit         decimal.Decimal `json:"debit"`  // zero if credit side
	Credit        decimal.Decimal `json:"credit"` // zero if debit side
}

// Recompute renumbers the lines and derives the header totals from them.
func (t *Transaction) Recompute() {
	t.TotalDebit = decimal.Zero
	t.TotalCredit = decimal.Zero
	for i := range t.Details {
		t.Details[i].LineNo = i + 1
		t.TotalDebit = t.TotalDebit.Add(t.Details[i].Debit)
		t.TotalCredit = t.TotalCredit.Add(t.Details[i].Credit)
	}
}

// Balanced reports whether the header totals match.
func (t Transaction) Balanced() bool {
	return t.TotalDebit.Equal(t.TotalCredit)
}

// Posted reports whether the transaction is final.
func (t Transaction) Posted() bool {
	return t.Status == StatusPosted
}
