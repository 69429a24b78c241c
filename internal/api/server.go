// Package api exposes the dashboard's HTTP surface: sync triggers, item CRUD,
// chat, and the implementation queue, plus a websocket hub for UI refresh.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"pmhub/server/internal/llm"
	"pmhub/server/internal/pmstore"
	"pmhub/server/internal/sync"
	"pmhub/server/internal/triage"
)

type ItemStore interface {
	GetAll() ([]pmstore.Item, error)
	GetByItemID(itemID string) (*pmstore.Item, error)
	Create(item pmstore.Item) error
	Update(itemID string, upd pmstore.ItemUpdate) error
	SetAISuggestions(itemID string, sg pmstore.AISuggestions) error
	Delete(itemID string) error
}

type SyncLog interface {
	GetLatest(syncType string) (*pmstore.SyncRun, error)
	GetLatestSuccessful(syncType string) (*pmstore.SyncRun, error)
	History(syncType string, limit int) ([]pmstore.SyncRun, error)
}

type Syncer interface {
	RunFullSync(ctx context.Context) (sync.Result, error)
}

type ConversationStore interface {
	Create(agentType, title, relatedItemID string) (int64, error)
	List(agentType string) ([]pmstore.Conversation, error)
	Get(id int64) (*pmstore.Conversation, error)
	AppendMessage(conversationID int64, role, content string, metadata map[string]any) (int64, error)
	Messages(conversationID int64) ([]pmstore.ChatMessage, error)
}

type QueueStore interface {
	Enqueue(item pmstore.WorkItem) (int64, error)
	List() ([]pmstore.WorkItem, error)
	SetStatus(id int64, status string) error
	Reorder(id int64, order int) error
	Delete(id int64) error
}

type Triage interface {
	AnalyzeComplexity(ctx context.Context, brief string) (triage.ComplexityScore, error)
	GeneratePRD(ctx context.Context, idea, background string) (string, error)
	SuggestPlacement(ctx context.Context, item pmstore.Item) (pmstore.AISuggestions, error)
	PlanWorkItem(ctx context.Context, item pmstore.Item) (pmstore.WorkItem, error)
	GenerateCode(ctx context.Context, featureID, devBrief string) (triage.CodeGeneration, error)
}

type ChatLLM interface {
	Invoke(ctx context.Context, messages []llm.Message) (string, error)
	Model() string
}

type Deps struct {
	Items         ItemStore
	Syncs         SyncLog
	Syncer        Syncer
	Conversations ConversationStore
	Queue         QueueStore
	Triage        Triage
	LLM           ChatLLM
	// ChatContext loads the per-agent system prompt from the content store.
	ChatContext func(ctx context.Context, agentType string) (string, error)
	// DevBrief loads the implementation brief for an in-progress feature.
	DevBrief func(ctx context.Context, featureID string) (string, error)
	Logger      *slog.Logger
	Version     string
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub()}
	s.registerSyncRoutes()
	s.registerItemRoutes()
	s.registerChatRoutes()
	s.registerQueueRoutes()
	s.registerSystemRoutes()
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub exposes the event hub so other triggers (the scheduler's orchestrator
// callback) can publish UI refresh events through the same fan-out.
func (s *Server) Hub() *WSHub {
	return s.hub
}

func (s *Server) publish(topic string, payload map[string]any) {
	if s.hub != nil {
		s.hub.Publish(topic, payload)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
