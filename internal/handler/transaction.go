package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tallyloyalty/tally/internal/auth"
	"github.com/tallyloyalty/tally/internal/model"
	"github.com/tallyloyalty/tally/internal/store"
)

const maxQueryLimit = 200

type TransactionHandler struct {
	txStore *store.TransactionStore
	logger  *slog.Logger
}

func NewTransactionHandler(ts *store.TransactionStore, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{txStore: ts, logger: logger}
}

// List returns the caller's transaction history, newest first. Customers
// see movements where they earned or spent points; merchants see movements
// on their vouchers.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	f, errMsg := parseFilters(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	txs, err := h.txStore.Query(id.UserID, id.UserType, f)
	if err != nil {
		h.logger.Error("query transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transactions")
		return
	}
	if txs == nil {
		txs = []model.TransactionDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transactions": txs})
}

func parseFilters(r *http.Request) (store.Filters, string) {
	var f store.Filters
	q := r.URL.Query()

	switch t := q.Get("type"); t {
	case "", "all":
	case model.TransactionEarned, model.TransactionRedeemed:
		f.Type = t
	default:
		return f, "type must be earned, redeemed, or all"
	}

	if from := q.Get("date_from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return f, "date_from must be RFC 3339"
		}
		f.DateFrom = &t
	}
	if to := q.Get("date_to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return f, "date_to must be RFC 3339"
		}
		f.DateTo = &t
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 || n > maxQueryLimit {
			return f, "limit must be between 1 and 200"
		}
		f.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return f, "offset must be non-negative"
		}
		f.Offset = n
	}

	return f, ""
}
