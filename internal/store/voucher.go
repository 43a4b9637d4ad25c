package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyloyalty/tally/internal/model"
)

// ErrNotRedeemable covers every way a redemption can be refused: unknown
// code, already redeemed, or expired. Callers get one collapsed outcome so
// the response does not reveal which guard failed.
var ErrNotRedeemable = errors.New("voucher not redeemable")

const (
	codePrefix       = "VCH"
	codeSuffixLen    = 8
	maxIssueAttempts = 5
)

type VoucherStore struct {
	db *sql.DB
}

func NewVoucherStore(db *sql.DB) *VoucherStore {
	return &VoucherStore{db: db}
}

// generateCode produces an unpredictable human-presentable voucher code:
// a fixed prefix plus the first 8 hex characters of a v4 UUID, uppercased.
// Uniqueness is enforced by the code column's UNIQUE constraint, not here.
func generateCode() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:codeSuffixLen]
	return codePrefix + strings.ToUpper(suffix)
}

func scanVoucher(scanner interface{ Scan(...any) error }) (*model.Voucher, error) {
	var v model.Voucher
	var redeemed int
	var redeemedBy sql.NullInt64
	var redeemedAt, expiresAt sql.NullTime

	err := scanner.Scan(
		&v.ID, &v.MerchantID, &v.Code, &v.PointsValue, &v.Description,
		&v.QRCodeData, &redeemed, &redeemedBy, &redeemedAt, &expiresAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Redeemed = redeemed != 0
	if redeemedBy.Valid {
		v.RedeemedBy = &redeemedBy.Int64
	}
	if redeemedAt.Valid {
		v.RedeemedAt = &redeemedAt.Time
	}
	if expiresAt.Valid {
		v.ExpiresAt = &expiresAt.Time
	}
	return &v, nil
}

const voucherCols = `id, merchant_id, code, points_value, description, qr_code_data, is_redeemed, redeemed_by, redeemed_at, expires_at, created_at`

// Issue creates an open voucher with a fresh unique code. A code collision
// at the store's UNIQUE constraint triggers regeneration.
func (s *VoucherStore) Issue(merchantID int64, pointsValue int, description string, expiresAt *time.Time) (*model.Voucher, error) {
	if pointsValue <= 0 {
		return nil, fmt.Errorf("points value must be positive, got %d", pointsValue)
	}

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code := generateCode()
		result, err := s.db.Exec(
			`INSERT INTO vouchers (merchant_id, code, points_value, description, expires_at)
			 VALUES (?, ?, ?, ?, ?)`,
			merchantID, code, pointsValue, description, exp,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: vouchers.code") {
				continue
			}
			return nil, fmt.Errorf("insert voucher: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		return s.GetByID(id)
	}
	return nil, fmt.Errorf("issue voucher: exhausted %d code attempts", maxIssueAttempts)
}

// SetQRData attaches the rendered QR image to a voucher after issuance.
func (s *VoucherStore) SetQRData(id int64, qrData string) (*model.Voucher, error) {
	_, err := s.db.Exec(`UPDATE vouchers SET qr_code_data = ? WHERE id = ?`, qrData, id)
	if err != nil {
		return nil, fmt.Errorf("set qr data: %w", err)
	}
	return s.GetByID(id)
}

func (s *VoucherStore) GetByID(id int64) (*model.Voucher, error) {
	row := s.db.QueryRow(`SELECT `+voucherCols+` FROM vouchers WHERE id = ?`, id)
	v, err := scanVoucher(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return v, nil
}

func (s *VoucherStore) GetByCode(code string) (*model.Voucher, error) {
	row := s.db.QueryRow(`SELECT `+voucherCols+` FROM vouchers WHERE code = ?`, code)
	v, err := scanVoucher(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}
	return v, nil
}

// ListByMerchant returns a merchant's vouchers, newest first.
func (s *VoucherStore) ListByMerchant(merchantID int64) ([]model.Voucher, error) {
	rows, err := s.db.Query(
		`SELECT `+voucherCols+` FROM vouchers WHERE merchant_id = ? ORDER BY created_at DESC, id DESC`,
		merchantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}
	return vouchers, rows.Err()
}

// Redeem converts an open, unexpired voucher into a balance credit and an
// earned transaction for the customer. The voucher transition, transaction
// append, and balance credit commit together or not at all.
//
// The guard (still open, not expired) is part of the conditional UPDATE, so
// of two concurrent redemptions of one code exactly one wins; the loser gets
// ErrNotRedeemable.
//
// requestID, when supplied by the client, makes the operation safe under
// at-least-once delivery: replaying a completed redemption returns the
// recorded result instead of ErrNotRedeemable.
func (s *VoucherStore) Redeem(customerID int64, code string, requestID *string) (*model.Redemption, error) {
	if requestID != nil {
		replay, err := s.replayByRequestID(customerID, *requestID)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
	}

	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+voucherCols+` FROM vouchers WHERE code = ?`, code)
	v, err := scanVoucher(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotRedeemable
	}
	if err != nil {
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE vouchers SET is_redeemed = 1, redeemed_by = ?, redeemed_at = ?
		 WHERE id = ? AND is_redeemed = 0 AND (expires_at IS NULL OR expires_at > ?)`,
		customerID, now, v.ID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("redeem voucher: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotRedeemable
	}

	var reqID sql.NullString
	if requestID != nil {
		reqID = sql.NullString{String: *requestID, Valid: true}
	}
	_, err = tx.Exec(
		`INSERT INTO transactions (customer_id, merchant_id, points_amount, transaction_type, description, voucher_code, request_id)
		 VALUES (?, ?, ?, 'earned', ?, ?, ?)`,
		customerID, v.MerchantID, v.PointsValue, v.Description, v.Code, reqID,
	)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	if err := creditBalance(tx, customerID, v.PointsValue); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &model.Redemption{
		VoucherID:    v.ID,
		VoucherCode:  v.Code,
		MerchantID:   v.MerchantID,
		PointsEarned: v.PointsValue,
		Description:  v.Description,
	}, nil
}

// replayByRequestID looks for a completed redemption already recorded under
// the client's request id. A request id recorded for a different customer is
// not replayed.
func (s *VoucherStore) replayByRequestID(customerID int64, requestID string) (*model.Redemption, error) {
	var txCustomerID, merchantID int64
	var points int
	var description, voucherCode string
	err := s.db.QueryRow(
		`SELECT customer_id, merchant_id, points_amount, description, voucher_code
		 FROM transactions WHERE request_id = ?`,
		requestID,
	).Scan(&txCustomerID, &merchantID, &points, &description, &voucherCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by request id: %w", err)
	}
	if txCustomerID != customerID {
		return nil, ErrNotRedeemable
	}

	var voucherID int64
	if err := s.db.QueryRow(`SELECT id FROM vouchers WHERE code = ?`, voucherCode).Scan(&voucherID); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get voucher id: %w", err)
	}

	return &model.Redemption{
		VoucherID:    voucherID,
		VoucherCode:  voucherCode,
		MerchantID:   merchantID,
		PointsEarned: points,
		Description:  description,
	}, nil
}
