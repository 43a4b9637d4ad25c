package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tallyloyalty/tally/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Filters narrows a transaction history query. Zero values mean "no filter";
// Limit defaults to 50.
type Filters struct {
	Type     string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

const defaultQueryLimit = 50

// Append inserts one immutable transaction row. Nothing in this store ever
// updates or deletes a row.
func (s *TransactionStore) Append(customerID, merchantID int64, points int, txType, description, voucherCode string, requestID *string) (*model.Transaction, error) {
	if txType != model.TransactionEarned && txType != model.TransactionRedeemed {
		return nil, fmt.Errorf("invalid transaction type %q", txType)
	}

	var reqID sql.NullString
	if requestID != nil {
		reqID = sql.NullString{String: *requestID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO transactions (customer_id, merchant_id, points_amount, transaction_type, description, voucher_code, request_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customerID, merchantID, points, txType, description, voucherCode, reqID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getByID(id)
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var requestID sql.NullString
	err := scanner.Scan(
		&t.ID, &t.CustomerID, &t.MerchantID, &t.PointsAmount, &t.Type,
		&t.Description, &t.VoucherCode, &requestID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if requestID.Valid {
		t.RequestID = &requestID.String
	}
	return &t, nil
}

const transactionCols = `id, customer_id, merchant_id, points_amount, transaction_type, description, voucher_code, request_id, created_at`

func (s *TransactionStore) getByID(id int64) (*model.Transaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListByCustomer returns every transaction for a customer, newest first.
// Used for balance reconciliation; history views go through Query.
func (s *TransactionStore) ListByCustomer(customerID int64) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE customer_id = ? ORDER BY created_at DESC, id DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// Query returns the actor's transaction history, newest first, enriched with
// both parties' display names. The actor column depends on role: customers
// see transactions where they are the customer, merchants where they are the
// merchant.
func (s *TransactionStore) Query(userID int64, role string, f Filters) ([]model.TransactionDetail, error) {
	actorCol := "t.customer_id"
	if role == model.UserTypeMerchant {
		actorCol = "t.merchant_id"
	}

	query := `SELECT t.id, t.customer_id, t.merchant_id, t.points_amount, t.transaction_type,
	       t.description, t.voucher_code, t.request_id, t.created_at,
	       c.name, c.email, m.name, m.business_name
	FROM transactions t
	JOIN users c ON t.customer_id = c.id
	JOIN users m ON t.merchant_id = m.id
	WHERE ` + actorCol + ` = ?`
	args := []any{userID}

	if f.Type != "" {
		query += ` AND t.transaction_type = ?`
		args = append(args, f.Type)
	}
	if f.DateFrom != nil {
		query += ` AND t.created_at >= ?`
		args = append(args, f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		query += ` AND t.created_at <= ?`
		args = append(args, f.DateTo.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var details []model.TransactionDetail
	for rows.Next() {
		var d model.TransactionDetail
		var requestID sql.NullString
		err := rows.Scan(
			&d.ID, &d.CustomerID, &d.MerchantID, &d.PointsAmount, &d.Type,
			&d.Description, &d.VoucherCode, &requestID, &d.CreatedAt,
			&d.CustomerName, &d.CustomerEmail, &d.MerchantName, &d.BusinessName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction detail: %w", err)
		}
		if requestID.Valid {
			d.RequestID = &requestID.String
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
