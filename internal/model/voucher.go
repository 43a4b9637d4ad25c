package model

import "time"

type Voucher struct {
	ID          int64      `json:"id"`
	MerchantID  int64      `json:"merchant_id"`
	Code        string     `json:"code"`
	PointsValue int        `json:"points_value"`
	Description string     `json:"description"`
	QRCodeData  string     `json:"qr_code_data,omitempty"`
	Redeemed    bool       `json:"is_redeemed"`
	RedeemedBy  *int64     `json:"redeemed_by,omitempty"`
	RedeemedAt  *time.Time `json:"redeemed_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Redemption is the outcome of a successful voucher redemption.
type Redemption struct {
	VoucherID    int64  `json:"voucher_id"`
	VoucherCode  string `json:"voucher_code"`
	MerchantID   int64  `json:"merchant_id"`
	PointsEarned int    `json:"points_earned"`
	Description  string `json:"description"`
}
