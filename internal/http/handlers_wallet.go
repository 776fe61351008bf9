package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pouch/internal/core"
	"pouch/internal/spending"
)

type createWalletRequest struct {
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	Country        string `json:"country"`
	SpendingPeriod string `json:"spendingPeriod"`
	SubWalletOf    *int64 `json:"subWalletOf"`
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := decodeBody(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body", err.Error())
		return
	}

	wallet, err := s.wallets.CreateWallet(r.Context(), core.Wallet{
		UserID:         userID(r),
		Name:           strings.TrimSpace(req.Name),
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		Country:        strings.ToUpper(strings.TrimSpace(req.Country)),
		SpendingPeriod: core.PeriodUnit(strings.ToUpper(strings.TrimSpace(req.SpendingPeriod))),
		SubWalletOf:    req.SubWalletOf,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateUser(wallet.UserID)
	writeJSON(w, http.StatusCreated, wallet)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	phrase := strings.TrimSpace(r.URL.Query().Get("searchPhrase"))
	wallets, err := s.repo.SearchWallets(r.Context(), userID(r), phrase)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if wallets == nil {
		wallets = []core.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleMainWallets(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	wallets, err := s.repo.MainWallets(r.Context(), userID(r), currency)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if wallets == nil {
		wallets = []core.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

// handleDashboard returns every top-level wallet with its current-period
// total and transactions. The caller's timezone is persisted on first use,
// then reused when the query parameter is absent.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	tz, err := s.resolveTimezone(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	cacheKey := uid + "|dashboard|" + tz
	if aggs, ok := s.dashboardCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, aggs)
		return
	}

	aggs, err := s.spending.DashboardWallets(r.Context(), uid, tz)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if aggs == nil {
		aggs = []spending.WalletAggregate{}
	}

	s.dashboardCache.Set(cacheKey, aggs)
	writeJSON(w, http.StatusOK, aggs)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "walletId")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_WALLET_ID", "Wallet id must be a positive integer", err.Error())
		return
	}
	tz, err := s.resolveTimezone(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	agg, err := s.spending.CurrentPeriodTotal(r.Context(), userID(r), id, tz)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

type updateWalletRequest struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	SpendingPeriod string `json:"spendingPeriod"`
	Archived       *bool  `json:"archived"`
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req updateWalletRequest
	if err := decodeBody(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body", err.Error())
		return
	}

	uid := userID(r)
	current, err := s.wallets.GetWallet(r.Context(), uid, req.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// Only name, spending period and archival are editable.
	current.Name = strings.TrimSpace(req.Name)
	current.SpendingPeriod = core.PeriodUnit(strings.ToUpper(strings.TrimSpace(req.SpendingPeriod)))
	if req.Archived != nil {
		if *req.Archived && current.ArchivedAt == nil {
			now := time.Now()
			current.ArchivedAt = &now
		} else if !*req.Archived {
			current.ArchivedAt = nil
		}
	}

	updated, err := s.wallets.UpdateWallet(r.Context(), current)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateUser(uid)
	writeJSON(w, http.StatusOK, updated)
}

// handleChart returns the historical bucket series for one wallet's scope,
// most recent bucket first.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "walletId")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_WALLET_ID", "Wallet id must be a positive integer", err.Error())
		return
	}

	query := r.URL.Query()
	unit := strings.TrimSpace(query.Get("unit"))
	limit, offset, err := parseLimitOffset(query, 12)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	tz, err := s.resolveTimezone(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	uid := userID(r)
	cacheKey := fmt.Sprintf("%s|chart|%d|%s|%s|%d|%d", uid, id, unit, tz, limit, offset)
	if buckets, ok := s.chartCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, buckets)
		return
	}

	buckets, err := s.spending.ChartSeries(r.Context(), uid, id, unit, tz, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.chartCache.Set(cacheKey, buckets)
	writeJSON(w, http.StatusOK, buckets)
}

// resolveTimezone picks the timezone for a read: an explicit query value is
// validated and persisted, otherwise the stored per-user setting applies.
func (s *Server) resolveTimezone(r *http.Request) (string, error) {
	uid := userID(r)
	tz := strings.TrimSpace(r.URL.Query().Get("timezone"))
	if tz == "" {
		return s.repo.GetTimezone(r.Context(), uid)
	}
	if _, err := core.LoadTimezone(tz); err != nil {
		return "", err
	}
	if err := s.repo.SetTimezone(r.Context(), uid, tz); err != nil {
		// The read can still proceed with the validated zone.
		slog.WarnContext(r.Context(), "Failed to persist timezone", "error", err)
	}
	return tz, nil
}
