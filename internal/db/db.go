package db

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

func InitDB(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ledger_journal (
		seq BIGINT UNSIGNED PRIMARY KEY,
		entry_type VARCHAR(32) NOT NULL,
		caller VARCHAR(42) NOT NULL,
		payload JSON NOT NULL,
		committed_at DATETIME(6) NOT NULL,
		INDEX idx_caller (caller),
		INDEX idx_entry_type (entry_type)
	);`,
	`CREATE TABLE IF NOT EXISTS wallet_balances (
		identity VARCHAR(42) PRIMARY KEY,
		amount BIGINT UNSIGNED NOT NULL DEFAULT 0,
		last_updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS wallet_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		identity VARCHAR(42) NOT NULL,
		balance BIGINT UNSIGNED NOT NULL,
		change_amount BIGINT UNSIGNED NOT NULL,
		entry_seq BIGINT UNSIGNED,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_identity (identity),
		INDEX idx_created_at (created_at)
	);`,
}

func RunMigrations(db *sql.DB) error {
	for _, q := range migrations {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
