package qr

import (
	"strings"
	"testing"
	"time"
)

func TestPayloadRoundTrip(t *testing.T) {
	for _, p := range []Payload{
		NewVoucherPayload(7, 3, 50),
		NewRedemptionPayload(9, 3, 20),
	} {
		encoded, err := p.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded := Decode(encoded)
		if decoded == nil {
			t.Fatalf("decode returned nil for %q", encoded)
		}
		if *decoded != p {
			t.Errorf("round trip = %+v, want %+v", *decoded, p)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, s := range []string{"", "not json", `{"type":`} {
		if p := Decode(s); p != nil {
			t.Errorf("Decode(%q) = %+v, want nil", s, p)
		}
	}
}

func TestDataURLFormat(t *testing.T) {
	url, err := DataURL(NewVoucherPayload(1, 2, 10))
	if err != nil {
		t.Fatalf("data url: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Error("url missing png data prefix")
	}
	if len(url) < 100 {
		t.Errorf("url suspiciously short: %d bytes", len(url))
	}
}

func TestIsFresh(t *testing.T) {
	p := NewVoucherPayload(1, 2, 10)
	if !p.IsFresh(DefaultMaxAge) {
		t.Error("just-created payload should be fresh")
	}

	p.Timestamp = time.Now().Add(-25 * time.Hour).UnixMilli()
	if p.IsFresh(DefaultMaxAge) {
		t.Error("25h-old payload should be stale under the 24h window")
	}

	p.Timestamp = time.Now().Add(-time.Hour).UnixMilli()
	if !p.IsFresh(DefaultMaxAge) {
		t.Error("1h-old payload should be fresh under the 24h window")
	}

	p.Timestamp = 0
	if p.IsFresh(DefaultMaxAge) {
		t.Error("payload without timestamp should not be fresh")
	}
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		name string
		p    Payload
		want bool
	}{
		{"voucher complete", NewVoucherPayload(1, 2, 10), true},
		{"redemption complete", NewRedemptionPayload(1, 2, 10), true},
		{"voucher missing id", Payload{Kind: KindVoucher, MerchantID: 2, Points: 10}, false},
		{"voucher zero points", Payload{Kind: KindVoucher, VoucherID: 1, MerchantID: 2}, false},
		{"redemption missing customer", Payload{Kind: KindRedemption, MerchantID: 2, Points: 10}, false},
		{"unknown kind", Payload{Kind: "transfer", VoucherID: 1, MerchantID: 2, Points: 10}, false},
	}
	for _, tt := range tests {
		if got := tt.p.IsWellFormed(); got != tt.want {
			t.Errorf("%s: IsWellFormed() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	p := NewVoucherPayload(1, 2, 10)
	if !p.Valid() {
		t.Error("fresh well-formed payload should be valid")
	}

	stale := p
	stale.Timestamp = time.Now().Add(-48 * time.Hour).UnixMilli()
	if stale.Valid() {
		t.Error("stale payload should not be valid")
	}

	var nilPayload *Payload
	if nilPayload.Valid() {
		t.Error("nil payload should not be valid")
	}
}
