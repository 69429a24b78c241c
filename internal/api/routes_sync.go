package api

import (
	"errors"
	"net/http"
	"strconv"

	"pmhub/server/internal/pmstore"
	"pmhub/server/internal/sync"
)

func (s *Server) registerSyncRoutes() {
	s.mux.HandleFunc("/api/v1/sync", s.handleSyncTrigger)
	s.mux.HandleFunc("/api/v1/sync/latest", s.handleSyncLatest)
	s.mux.HandleFunc("/api/v1/sync/history", s.handleSyncHistory)
}

func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	res, err := s.deps.Syncer.RunFullSync(r.Context())
	if errors.Is(err, sync.ErrSyncInProgress) {
		respondError(w, http.StatusConflict, "SYNC_IN_PROGRESS", "a sync is already running")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, "SYNC_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"success": true, "item_count": res.ItemCount})
}

// handleSyncLatest returns the most recent attempt regardless of outcome.
// Pass ?successful=1 for the most recent successful run instead.
func (s *Server) handleSyncLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var (
		run *pmstore.SyncRun
		err error
	)
	if r.URL.Query().Get("successful") == "1" {
		run, err = s.deps.Syncs.GetLatestSuccessful(sync.SyncTypeFull)
	} else {
		run, err = s.deps.Syncs.GetLatest(sync.SyncTypeFull)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SYNC_LOOKUP_FAILED", err.Error())
		return
	}
	respondOK(w, run)
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.deps.Syncs.History(sync.SyncTypeFull, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SYNC_LOOKUP_FAILED", err.Error())
		return
	}
	respondOK(w, runs)
}
