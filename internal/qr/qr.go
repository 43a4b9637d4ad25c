package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// Payload kinds
const (
	KindVoucher    = "voucher"
	KindRedemption = "redemption"
)

// DefaultMaxAge is the freshness window for scanned payloads. A leaked or
// screenshotted QR code stops being accepted once its timestamp falls
// outside this window.
const DefaultMaxAge = 24 * time.Hour

const imageSize = 256

// Payload is the typed record embedded in a QR code. It is self-contained:
// decoding and validating it needs no external lookup, so it works offline.
type Payload struct {
	Kind       string `json:"type"`
	VoucherID  int64  `json:"voucherId,omitempty"`
	CustomerID int64  `json:"customerId,omitempty"`
	MerchantID int64  `json:"merchantId"`
	Points     int    `json:"points"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
}

// NewVoucherPayload builds a voucher payload stamped with the current time.
func NewVoucherPayload(voucherID, merchantID int64, points int) Payload {
	return Payload{
		Kind:       KindVoucher,
		VoucherID:  voucherID,
		MerchantID: merchantID,
		Points:     points,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// NewRedemptionPayload builds a redemption payload stamped with the current time.
func NewRedemptionPayload(customerID, merchantID int64, points int) Payload {
	return Payload{
		Kind:       KindRedemption,
		CustomerID: customerID,
		MerchantID: merchantID,
		Points:     points,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// Encode returns the JSON string carried as QR content. Scanners hand this
// exact string back to Decode.
func (p Payload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// DataURL renders the payload as a scannable PNG data URL, suitable for
// embedding directly in an <img> tag.
func DataURL(p Payload) (string, error) {
	content, err := p.Encode()
	if err != nil {
		return "", err
	}

	png, err := qrcode.Encode(content, qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Decode parses a scanned QR content string. It returns nil on malformed
// input; a bad scan is expected, not a fault.
func Decode(s string) *Payload {
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil
	}
	return &p
}

// IsFresh reports whether the payload was created within maxAge of now.
func (p *Payload) IsFresh(maxAge time.Duration) bool {
	if p.Timestamp <= 0 {
		return false
	}
	age := time.Since(time.UnixMilli(p.Timestamp))
	return age <= maxAge
}

// IsWellFormed reports whether all fields required by the payload's kind
// are present.
func (p *Payload) IsWellFormed() bool {
	switch p.Kind {
	case KindVoucher:
		return p.VoucherID > 0 && p.Points > 0 && p.MerchantID > 0
	case KindRedemption:
		return p.CustomerID > 0 && p.MerchantID > 0 && p.Points > 0
	default:
		return false
	}
}

// Valid is the two-phase check every caller must pass before trusting a
// payload: freshness under the default window and per-kind well-formedness.
func (p *Payload) Valid() bool {
	return p != nil && p.IsFresh(DefaultMaxAge) && p.IsWellFormed()
}
