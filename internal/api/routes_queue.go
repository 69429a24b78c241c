package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pmhub/server/internal/pmstore"
)

func (s *Server) registerQueueRoutes() {
	s.mux.HandleFunc("/api/v1/queue", s.handleQueueList)
	s.mux.HandleFunc("/api/v1/queue/", s.handleQueueActions)
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	items, err := s.deps.Queue.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUEUE_LIST_FAILED", err.Error())
		return
	}
	respondOK(w, items)
}

func (s *Server) handleQueueActions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/queue/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_QUEUE_ID", "queue id must be numeric")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		err := s.deps.Queue.Delete(id)
		if errors.Is(err, pmstore.ErrWorkItemNotFound) {
			respondError(w, http.StatusNotFound, "WORK_ITEM_NOT_FOUND", "no such work item")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "QUEUE_DELETE_FAILED", err.Error())
			return
		}
		s.publish("queue.updated", map[string]any{"id": id, "deleted": true})
		respondOK(w, map[string]any{"deleted": true})
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}

	switch parts[1] {
	case "status":
		var req struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		err := s.deps.Queue.SetStatus(id, req.Status)
		switch {
		case errors.Is(err, pmstore.ErrWorkItemNotFound):
			respondError(w, http.StatusNotFound, "WORK_ITEM_NOT_FOUND", "no such work item")
			return
		case err != nil:
			respondError(w, http.StatusBadRequest, "QUEUE_STATUS_FAILED", err.Error())
			return
		}
	case "order":
		var req struct {
			QueueOrder int `json:"queue_order"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		err := s.deps.Queue.Reorder(id, req.QueueOrder)
		switch {
		case errors.Is(err, pmstore.ErrWorkItemNotFound):
			respondError(w, http.StatusNotFound, "WORK_ITEM_NOT_FOUND", "no such work item")
			return
		case err != nil:
			respondError(w, http.StatusBadRequest, "QUEUE_REORDER_FAILED", err.Error())
			return
		}
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}

	s.publish("queue.updated", map[string]any{"id": id})
	respondOK(w, map[string]any{"updated": true})
}
