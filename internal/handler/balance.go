package handler

import (
	"log/slog"
	"net/http"

	"github.com/tallyloyalty/tally/internal/auth"
	"github.com/tallyloyalty/tally/internal/store"
)

type BalanceHandler struct {
	balanceStore *store.BalanceStore
	logger       *slog.Logger
}

func NewBalanceHandler(bs *store.BalanceStore, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{balanceStore: bs, logger: logger}
}

// Get returns the authenticated customer's point balance.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	balance, err := h.balanceStore.Get(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "balance": balance.TotalPoints})
}
