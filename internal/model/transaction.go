package model

import "time"

// Transaction type constants
const (
	TransactionEarned   = "earned"
	TransactionRedeemed = "redeemed"
)

// Transaction is one immutable points movement. Rows are only ever inserted.
type Transaction struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	MerchantID   int64     `json:"merchant_id"`
	PointsAmount int       `json:"points_amount"`
	Type         string    `json:"transaction_type"`
	Description  string    `json:"description,omitempty"`
	VoucherCode  string    `json:"voucher_code,omitempty"`
	RequestID    *string   `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransactionDetail is a transaction enriched with both parties' display
// names for history views.
type TransactionDetail struct {
	Transaction
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	MerchantName  string `json:"merchant_name"`
	BusinessName  string `json:"business_name,omitempty"`
}
