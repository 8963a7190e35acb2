package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is an inventory master record.
type Item struct {
	ID                 int64           `json:"id"`
	CompanyID          int64           `json:"company_id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Unit               string          `json:"unit"`
	Category           string          `json:"category,omitempty"`
	PurchasePrice      decimal.Decimal `json:"purchase_price"`
	SalePrice          decimal.Decimal `json:"sale_price"`
	InventoryAccountID int64           `json:"inventory_account_id,omitempty"`
	SalesAccountID     int64           `json:"sales_account_id,omitempty"`
	CostAccountID      int64           `json:"cost_account_id,omitempty"`
	Active             bool            `json:"active"`
}

// PartnerRole says which side of trade a business relation is on.
type PartnerRole string

const (
	PartnerCustomer PartnerRole = "customer"
	PartnerSupplier PartnerRole = "supplier"
	PartnerBoth     PartnerRole = "both"
)

// Valid reports whether r is a known partner role.
func (r PartnerRole) Valid() bool {
	return r == PartnerCustomer || r == PartnerSupplier || r == PartnerBoth
}

// Partner is a business relation: a customer, a supplier, or both.
type Partner struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Role      PartnerRole `json:"role"`
	Address   string      `json:"address,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Email     string      `json:"email,omitempty"`
	TaxID     string      `json:"tax_id,omitempty"`
	Active    bool        `json:"active"`
}

// Role is a user's permission level.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleViewer     Role = "viewer"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleAccountant:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.rank() > 0 }

// Allows reports whether a user holding r may perform an action that needs required.
func (r Role) Allows(required Role) bool {
	return r.rank() >= required.rank() && r.rank() > 0
}

// User is an application login.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
