package store

// Schema defines the SQL statements that create the ledger tables.
// Money columns hold decimal strings; dates are ISO "YYYY-MM-DD" text so they
// compare correctly as strings.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    tax_id TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL DEFAULT 'IDR',
    fiscal_year_start INTEGER NOT NULL DEFAULT 1,
    locked_until TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,                -- ASET, KEWAJIBAN, EKUITAS, PENDAPATAN, BEBAN
    kind TEXT NOT NULL DEFAULT '',
    parent_id INTEGER REFERENCES accounts(id),
    is_group INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    description TEXT NOT NULL DEFAULT '',
    UNIQUE(company_id, code)
);

CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id);

CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    unit TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    purchase_price TEXT NOT NULL DEFAULT '0',
    sale_price TEXT NOT NULL DEFAULT '0',
    inventory_account_id INTEGER REFERENCES accounts(id),
    sales_account_id INTEGER REFERENCES accounts(id),
    cost_account_id INTEGER REFERENCES accounts(id),
    active INTEGER NOT NULL DEFAULT 1,
    UNIQUE(company_id, code)
);

CREATE TABLE IF NOT EXISTS partners (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    role TEXT NOT NULL,                -- customer, supplier, both
    address TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    tax_id TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    UNIQUE(company_id, code)
);

CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    number TEXT NOT NULL,
    type TEXT NOT NULL,
    date TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    reference TEXT NOT NULL DEFAULT '',
    partner_id INTEGER REFERENCES partners(id),
    status TEXT NOT NULL,              -- draft, posted
    total_debit TEXT NOT NULL DEFAULT '0',
    total_credit TEXT NOT NULL DEFAULT '0',
    reversal_of INTEGER UNIQUE REFERENCES transactions(id),
    created_by TEXT NOT NULL DEFAULT '',
    posted_by TEXT NOT NULL DEFAULT '',
    posted_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(company_id, number)
);

CREATE INDEX IF NOT EXISTS idx_transactions_company_date
    ON transactions(company_id, date);

CREATE TABLE IF NOT EXISTS transaction_details (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    line_no INTEGER NOT NULL,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    partner_id INTEGER REFERENCES partners(id),
    item_id INTEGER REFERENCES items(id),
    quantity TEXT NOT NULL DEFAULT '0',
    description TEXT NOT NULL DEFAULT '',
    debit TEXT NOT NULL DEFAULT '0',
    credit TEXT NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_details_transaction ON transaction_details(transaction_id);
CREATE INDEX IF NOT EXISTS idx_details_account ON transaction_details(account_id);

-- Per-period counters; a number once handed out is never reused.
CREATE TABLE IF NOT EXISTS number_sequences (
    company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    period TEXT NOT NULL,              -- YYYY-MM
    last_seq INTEGER NOT NULL,
    PRIMARY KEY (company_id, type, period)
);
`

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	return nil
}
