package store

import (
	"database/sql"
	"fmt"

	"github.com/tallyloyalty/tally/internal/model"
)

type BalanceStore struct {
	db *sql.DB
}

func NewBalanceStore(db *sql.DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx, so balance credits can
// run standalone or inside a redemption transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// creditBalance creates the customer's balance row at the credited amount or
// increments an existing one. Amount must already be validated as positive.
func creditBalance(e execer, customerID int64, amount int) error {
	_, err := e.Exec(
		`INSERT INTO balances (customer_id, total_points) VALUES (?, ?)
		 ON CONFLICT(customer_id) DO UPDATE SET
		   total_points = total_points + excluded.total_points,
		   updated_at = CURRENT_TIMESTAMP`,
		customerID, amount,
	)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// Init creates a zero balance row for a new customer. Safe to call twice.
func (s *BalanceStore) Init(customerID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO balances (customer_id, total_points) VALUES (?, 0)
		 ON CONFLICT(customer_id) DO NOTHING`,
		customerID,
	)
	if err != nil {
		return fmt.Errorf("init balance: %w", err)
	}
	return nil
}

// Credit atomically adds a positive amount to the customer's balance,
// creating the row if absent.
func (s *BalanceStore) Credit(customerID int64, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return creditBalance(s.db, customerID, amount)
}

// Get returns the customer's balance. A customer with no balance row has
// zero points, not an error.
func (s *BalanceStore) Get(customerID int64) (*model.Balance, error) {
	var b model.Balance
	err := s.db.QueryRow(
		`SELECT customer_id, total_points, updated_at FROM balances WHERE customer_id = ?`,
		customerID,
	).Scan(&b.CustomerID, &b.TotalPoints, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.Balance{CustomerID: customerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}
