package model

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASET"
	AccountTypeLiability AccountType = "KEWAJIBAN"
	AccountTypeEquity    AccountType = "EKUITAS"
	AccountTypeRevenue   AccountType = "PENDAPATAN"
	AccountTypeExpense   AccountType = "BEBAN"
)

// AccountTypes lists every account type in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Side is the debit or credit side of a ledger.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which balances of this type increase.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// IsBalanceSheet reports whether accounts of this type carry over between fiscal years.
func (t AccountType) IsBalanceSheet() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability || t == AccountTypeEquity
}

// AccountKind narrows an account for subledger reporting.
type AccountKind string

const (
	AccountKindGeneral    AccountKind = ""
	AccountKindCash       AccountKind = "cash"
	AccountKindBank       AccountKind = "bank"
	AccountKindReceivable AccountKind = "receivable"
	AccountKindPayable    AccountKind = "payable"
	AccountKindInventory  AccountKind = "inventory"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindGeneral, AccountKindCash, AccountKindBank, AccountKindReceivable, AccountKindPayable, AccountKindInventory:
		return true
	}
	return false
}

// Account is one node of a company's chart of accounts.
type Account struct {
	ID          int64       `json:"id"`
	CompanyID   int64       `json:"company_id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Kind        AccountKind `json:"kind,omitempty"`
	ParentID    int64       `json:"parent_id,omitempty"` // 0 = top-level
	IsGroup     bool        `json:"is_group"`
	Active      bool        `json:"active"`
	Description string      `json:"description,omitempty"`
}

// Postable reports whether journal lines may reference the account.
func (a Account) Postable() bool {
	return a.Active && !a.IsGroup
}
