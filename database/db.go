package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/tallyhq/tally/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, errors.Wrap(err, "connecting to database")
	}
	err = createAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createDebtTable(db)
	if err != nil {
		return nil, err
	}
	err = createCompanyTable(db)
	if err != nil {
		return nil, err
	}
	err = createProviderTokenTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createAccountTable creates a PostgreSQL table for the Account struct
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			source_account_id TEXT NOT NULL UNIQUE,
			access_token TEXT,
			institution_name TEXT,
			account_name TEXT,
			account_type TEXT,
			account_subtype TEXT,
			mask TEXT,
			current_balance DOUBLE PRECISION DEFAULT 0,
			available_balance DOUBLE PRECISION DEFAULT 0,
			credit_limit DOUBLE PRECISION,
			currency TEXT DEFAULT 'USD',
			is_active BOOLEAN DEFAULT TRUE,
			last_synced TIMESTAMP,
			sync_error TEXT,
			meta_data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createTransactionTable creates a PostgreSQL table for the Transaction struct.
// source_id is the provider-native id and the idempotency key for upserts.
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL UNIQUE,
			account_id TEXT,
			company TEXT NOT NULL DEFAULT 'Unallocated',
			allocation_percentage DOUBLE PRECISION NOT NULL DEFAULT 100,
			split_allocations JSONB,
			date TIMESTAMP NOT NULL,
			amount DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
			currency TEXT DEFAULT 'USD',
			description TEXT,
			merchant TEXT,
			category TEXT,
			subcategory TEXT,
			type TEXT NOT NULL,
			pending BOOLEAN DEFAULT FALSE,
			expense_source TEXT,
			invoice_number TEXT,
			receipt_url TEXT,
			card_provider TEXT,
			business_purpose TEXT,
			tax_deductible BOOLEAN DEFAULT FALSE,
			notes TEXT,
			tags JSONB,
			meta_data JSONB,
			location JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category);
		CREATE INDEX IF NOT EXISTS idx_transactions_company_date ON transactions(company, date DESC)
	`)
	return err
}

// createDebtTable creates a PostgreSQL table for the Debt struct.
// Debts are keyed by (name, source) across syncs.
func createDebtTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS debts (
			id SERIAL PRIMARY KEY,
			debt_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			account_id TEXT,
			current_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			original_balance DOUBLE PRECISION,
			credit_limit DOUBLE PRECISION,
			minimum_payment DOUBLE PRECISION NOT NULL DEFAULT 0,
			apr DOUBLE PRECISION,
			due_date TEXT,
			due_date_day INTEGER,
			payment_history JSONB,
			is_active BOOLEAN DEFAULT TRUE,
			meta_data JSONB,
			last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (name, source)
		)
	`)
	return err
}

func createCompanyTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS companies (
			id SERIAL PRIMARY KEY,
			company_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			type TEXT DEFAULT 'business',
			tax_id TEXT,
			categories JSONB,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createProviderTokenTable persists OAuth credentials keyed by provider and
// realm so connections survive a process restart.
func createProviderTokenTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS provider_tokens (
			id SERIAL PRIMARY KEY,
			provider TEXT NOT NULL,
			realm_id TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			expires_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (provider, realm_id)
		)
	`)
	return err
}
