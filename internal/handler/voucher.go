package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tallyloyalty/tally/internal/auth"
	"github.com/tallyloyalty/tally/internal/model"
	"github.com/tallyloyalty/tally/internal/push"
	"github.com/tallyloyalty/tally/internal/qr"
	"github.com/tallyloyalty/tally/internal/store"
	"github.com/tallyloyalty/tally/internal/websocket"
)

type VoucherHandler struct {
	voucherStore *store.VoucherStore
	hub          *websocket.Hub
	pushSvc      *push.Service
	logger       *slog.Logger
}

func NewVoucherHandler(vs *store.VoucherStore, hub *websocket.Hub, pushSvc *push.Service, logger *slog.Logger) *VoucherHandler {
	return &VoucherHandler{voucherStore: vs, hub: hub, pushSvc: pushSvc, logger: logger}
}

func (h *VoucherHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type issueRequest struct {
	PointsValue   int    `json:"points_value"`
	Description   string `json:"description"`
	ExpiresInDays int    `json:"expires_in_days"`
}

// Issue creates a voucher for the authenticated merchant and attaches its
// QR image.
func (h *VoucherHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.PointsValue <= 0 {
		writeError(w, http.StatusBadRequest, "points_value must be positive")
		return
	}
	if req.ExpiresInDays < 0 {
		writeError(w, http.StatusBadRequest, "expires_in_days must be positive")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	merchantID := auth.UserID(r.Context())
	voucher, err := h.voucherStore.Issue(merchantID, req.PointsValue, strings.TrimSpace(req.Description), expiresAt)
	if err != nil {
		h.logger.Error("issue voucher", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create voucher")
		return
	}

	dataURL, err := qr.DataURL(qr.NewVoucherPayload(voucher.ID, merchantID, voucher.PointsValue))
	if err != nil {
		h.logger.Error("encode voucher qr", "voucher_id", voucher.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create voucher")
		return
	}
	voucher, err = h.voucherStore.SetQRData(voucher.ID, dataURL)
	if err != nil {
		h.logger.Error("attach voucher qr", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create voucher")
		return
	}

	h.broadcast(websocket.NewEvent("voucher", "issued", voucher.ID, map[string]any{
		"merchant_id":  merchantID,
		"points_value": voucher.PointsValue,
	}))

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "voucher": voucher})
}

// List returns the authenticated merchant's vouchers.
func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.voucherStore.ListByMerchant(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list vouchers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list vouchers")
		return
	}
	if vouchers == nil {
		vouchers = []model.Voucher{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "vouchers": vouchers})
}

// Get returns one of the authenticated merchant's vouchers.
func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	voucher, err := h.voucherStore.GetByID(id)
	if err != nil {
		h.logger.Error("get voucher", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get voucher")
		return
	}
	if voucher == nil || voucher.MerchantID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "voucher not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "voucher": voucher})
}

type redeemRequest struct {
	VoucherCode string `json:"voucher_code"`
	QRData      string `json:"qr_data"`
	RequestID   string `json:"request_id"`
}

// Redeem redeems a voucher for the authenticated customer, by code or by
// scanned QR content. Every refusal is the same "not redeemable" answer so
// the response does not reveal whether a code exists, expired, or was
// already used.
func (h *VoucherHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	code := strings.TrimSpace(req.VoucherCode)
	if code == "" && req.QRData != "" {
		resolved, ok := h.resolveQR(req.QRData)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid QR code")
			return
		}
		code = resolved
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "voucher code is required")
		return
	}

	var requestID *string
	if req.RequestID != "" {
		requestID = &req.RequestID
	}

	customerID := auth.UserID(r.Context())
	redemption, err := h.voucherStore.Redeem(customerID, code, requestID)
	if err == store.ErrNotRedeemable {
		writeError(w, http.StatusConflict, "invalid or expired voucher")
		return
	}
	if err != nil {
		h.logger.Error("redeem voucher", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem voucher")
		return
	}

	h.broadcast(websocket.NewEvent("voucher", "redeemed", redemption.VoucherID, map[string]any{
		"merchant_id":   redemption.MerchantID,
		"customer_id":   customerID,
		"points_earned": redemption.PointsEarned,
	}))

	if h.pushSvc != nil {
		// Delivery happens off the request path; NotifyUser logs its own
		// failures and must never delay the redemption response.
		go h.pushSvc.NotifyUser(redemption.MerchantID, push.Notification{
			Title: "Voucher redeemed",
			Body:  fmt.Sprintf("%s was redeemed for %d points", redemption.VoucherCode, redemption.PointsEarned),
			Tag:   "voucher_redeemed",
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"points_earned": redemption.PointsEarned,
		"description":   redemption.Description,
	})
}

// resolveQR validates a scanned payload and maps it to a voucher code.
// Freshness and well-formedness must both hold before the embedded voucher
// id is trusted.
func (h *VoucherHandler) resolveQR(qrData string) (string, bool) {
	payload := qr.Decode(qrData)
	if !payload.Valid() || payload.Kind != qr.KindVoucher {
		return "", false
	}

	voucher, err := h.voucherStore.GetByID(payload.VoucherID)
	if err != nil {
		h.logger.Error("resolve qr voucher", "error", err)
		return "", false
	}
	if voucher == nil {
		return "", false
	}
	return voucher.Code, true
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
