package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pmhub/server/internal/pmstore"
)

func (s *Server) registerItemRoutes() {
	s.mux.HandleFunc("/api/v1/items", s.handleItems)
	s.mux.HandleFunc("/api/v1/items/", s.handleItemActions)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.deps.Items.GetAll()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "ITEM_LIST_FAILED", err.Error())
			return
		}
		respondOK(w, items)
	case http.MethodPost:
		s.handleItemCapture(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

// handleItemCapture creates an item directly in the database, ahead of any
// content-store descriptor. The next sync leaves captured rows alone because
// reconciliation only touches ids it sees in the repository.
func (s *Server) handleItemCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string   `json:"type"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Status      string   `json:"status"`
		Priority    string   `json:"priority"`
		Tags        []string `json:"tags"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if !pmstore.ValidType(req.Type) {
		respondError(w, http.StatusBadRequest, "INVALID_TYPE", "type must be one of IDEA, FEAT, BUG, IMPROVE, TECH")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "TITLE_REQUIRED", "title is required")
		return
	}
	if req.Status == "" {
		req.Status = pmstore.StatusInbox
	}
	if !pmstore.ValidStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status "+req.Status)
		return
	}
	if req.Priority != "" && !pmstore.ValidPriority(req.Priority) {
		respondError(w, http.StatusBadRequest, "INVALID_PRIORITY", "unknown priority "+req.Priority)
		return
	}
	item := pmstore.Item{
		ItemID:      fmt.Sprintf("%s-%s", req.Type, strings.ToUpper(uuid.NewString()[:8])),
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}
	if err := s.deps.Items.Create(item); err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_CREATE_FAILED", err.Error())
		return
	}
	s.publish("pm_items.updated", map[string]any{"item_id": item.ItemID})
	respondOK(w, item)
}

func (s *Server) handleItemActions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/items/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}
	itemID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleItemGet(w, itemID)
		case http.MethodPatch:
			s.handleItemUpdate(w, r, itemID)
		case http.MethodDelete:
			s.handleItemDelete(w, itemID)
		default:
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		switch parts[1] {
		case "suggest":
			s.handleItemSuggest(w, r, itemID)
		case "complexity":
			s.handleItemComplexity(w, r, itemID)
		case "prd":
			s.handleItemPRD(w, r, itemID)
		case "queue":
			s.handleItemQueue(w, r, itemID)
		case "generate-code":
			s.handleItemGenerateCode(w, r, itemID)
		default:
			respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		}
		return
	}

	respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) handleItemGet(w http.ResponseWriter, itemID string) {
	item, err := s.deps.Items.GetByItemID(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	respondOK(w, item)
}

func (s *Server) handleItemUpdate(w http.ResponseWriter, r *http.Request, itemID string) {
	var req struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Status      *string   `json:"status"`
		Priority    *string   `json:"priority"`
		Tags        *[]string `json:"tags"`
		Related     *[]string `json:"related"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	upd := pmstore.ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Related:     req.Related,
	}
	err := s.deps.Items.Update(itemID, upd)
	switch {
	case errors.Is(err, pmstore.ErrNotFound):
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, "ITEM_UPDATE_FAILED", err.Error())
		return
	}
	item, err := s.deps.Items.GetByItemID(itemID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	s.publish("pm_items.updated", map[string]any{"item_id": itemID})
	respondOK(w, item)
}

func (s *Server) handleItemDelete(w http.ResponseWriter, itemID string) {
	err := s.deps.Items.Delete(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_DELETE_FAILED", err.Error())
		return
	}
	s.publish("pm_items.updated", map[string]any{"item_id": itemID, "deleted": true})
	respondOK(w, map[string]any{"deleted": true})
}

func (s *Server) handleItemSuggest(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := s.deps.Items.GetByItemID(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	sg, err := s.deps.Triage.SuggestPlacement(r.Context(), *item)
	if err != nil {
		respondError(w, http.StatusBadGateway, "SUGGESTION_FAILED", err.Error())
		return
	}
	if err := s.deps.Items.SetAISuggestions(itemID, sg); err != nil {
		respondError(w, http.StatusInternalServerError, "SUGGESTION_SAVE_FAILED", err.Error())
		return
	}
	s.publish("pm_items.updated", map[string]any{"item_id": itemID})
	respondOK(w, sg)
}

func (s *Server) handleItemComplexity(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := s.deps.Items.GetByItemID(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	brief := item.Description
	if strings.TrimSpace(brief) == "" {
		brief = item.Title
	}
	score, err := s.deps.Triage.AnalyzeComplexity(r.Context(), brief)
	if err != nil {
		respondError(w, http.StatusBadGateway, "COMPLEXITY_FAILED", err.Error())
		return
	}
	respondOK(w, score)
}

func (s *Server) handleItemPRD(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := s.deps.Items.GetByItemID(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	var req struct {
		Background string `json:"background"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
	}
	idea := item.Title
	if strings.TrimSpace(item.Description) != "" {
		idea = item.Title + "\n\n" + item.Description
	}
	prd, err := s.deps.Triage.GeneratePRD(r.Context(), idea, req.Background)
	if err != nil {
		respondError(w, http.StatusBadGateway, "PRD_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"item_id": itemID, "prd": prd})
}

// handleItemGenerateCode loads the feature's dev brief from the content store
// and runs one generation pass over it. Only in-progress features carry a
// dev-brief.md, so anything else comes back as a context-load failure.
func (s *Server) handleItemGenerateCode(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := s.deps.Items.GetByItemID(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	if s.deps.DevBrief == nil {
		respondError(w, http.StatusNotImplemented, "CODEGEN_UNAVAILABLE", "code generation is not configured")
		return
	}
	brief, err := s.deps.DevBrief(r.Context(), item.ItemID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "CONTEXT_LOAD_FAILED", err.Error())
		return
	}
	gen, err := s.deps.Triage.GenerateCode(r.Context(), item.ItemID, brief)
	if err != nil {
		respondError(w, http.StatusBadGateway, "CODEGEN_FAILED", err.Error())
		return
	}
	respondOK(w, gen)
}

func (s *Server) handleItemQueue(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := s.deps.Items.GetByItemID(itemID)
	if errors.Is(err, pmstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "no item with id "+itemID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ITEM_LOOKUP_FAILED", err.Error())
		return
	}
	wi, err := s.deps.Triage.PlanWorkItem(r.Context(), *item)
	if err != nil {
		respondError(w, http.StatusBadGateway, "PLANNING_FAILED", err.Error())
		return
	}
	id, err := s.deps.Queue.Enqueue(wi)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ENQUEUE_FAILED", err.Error())
		return
	}
	wi.ID = id
	s.publish("queue.updated", map[string]any{"id": id, "pm_item_id": itemID})
	respondOK(w, wi)
}
