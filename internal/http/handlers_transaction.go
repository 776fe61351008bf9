package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pouch/internal/core"
)

type transactionRequest struct {
	ID             int64      `json:"id"`
	WalletID       int64      `json:"walletId"`
	Amount         core.Money `json:"amount"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
	PaidAt         time.Time  `json:"paidAt"`
	SubscriptionID *int64     `json:"subscriptionId"`
}

func (req transactionRequest) toDomain() core.Transaction {
	return core.Transaction{
		ID:             req.ID,
		WalletID:       req.WalletID,
		Amount:         req.Amount,
		Category:       core.Category(strings.ToUpper(strings.TrimSpace(req.Category))),
		Description:    strings.TrimSpace(req.Description),
		PaidAt:         req.PaidAt,
		SubscriptionID: req.SubscriptionID,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body", err.Error())
		return
	}

	uid := userID(r)
	created, err := s.txs.CreateTransaction(r.Context(), uid, req.toDomain())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateUser(uid)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body", err.Error())
		return
	}

	uid := userID(r)
	updated, err := s.txs.UpdateTransaction(r.Context(), uid, req.toDomain())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateUser(uid)
	writeJSON(w, http.StatusOK, updated)
}

// handleListTransactions returns the newest transactions across a wallet's
// scope (the wallet plus its direct sub-wallets).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	walletID, err := strconv.ParseInt(strings.TrimSpace(query.Get("walletId")), 10, 64)
	if err != nil || walletID < 1 {
		writeAPIError(w, http.StatusBadRequest, "INVALID_WALLET_ID", "Wallet id must be a positive integer", "")
		return
	}
	limit, offset, err := parseLimitOffset(query, 50)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	uid := userID(r)
	scope, err := s.repo.FindScopeWallets(r.Context(), uid, walletID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ids := make([]int64, len(scope))
	for i, sw := range scope {
		ids[i] = sw.ID
	}

	txs, err := s.repo.ListScopeTransactions(r.Context(), ids, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "transactionId")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_TRANSACTION_ID", "Transaction id must be a positive integer", err.Error())
		return
	}

	uid := userID(r)
	if err := s.txs.DeleteTransaction(r.Context(), uid, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateUser(uid)
	writeJSON(w, http.StatusNoContent, nil)
}
