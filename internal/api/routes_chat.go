package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pmhub/server/internal/llm"
	"pmhub/server/internal/pmstore"
)

func (s *Server) registerChatRoutes() {
	s.mux.HandleFunc("/api/v1/conversations", s.handleConversations)
	s.mux.HandleFunc("/api/v1/conversations/", s.handleConversationActions)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agentType := r.URL.Query().Get("agent_type")
		if agentType != "" && !pmstore.ValidAgentType(agentType) {
			respondError(w, http.StatusBadRequest, "INVALID_AGENT_TYPE", "unknown agent type "+agentType)
			return
		}
		convs, err := s.deps.Conversations.List(agentType)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "CONVERSATION_LIST_FAILED", err.Error())
			return
		}
		respondOK(w, convs)
	case http.MethodPost:
		var req struct {
			AgentType     string `json:"agent_type"`
			Title         string `json:"title"`
			RelatedItemID string `json:"related_item_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if !pmstore.ValidAgentType(req.AgentType) {
			respondError(w, http.StatusBadRequest, "INVALID_AGENT_TYPE", "agent_type must be one of inbox, planning, qa, expert")
			return
		}
		id, err := s.deps.Conversations.Create(req.AgentType, req.Title, req.RelatedItemID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "CONVERSATION_CREATE_FAILED", err.Error())
			return
		}
		conv, err := s.deps.Conversations.Get(id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "CONVERSATION_LOOKUP_FAILED", err.Error())
			return
		}
		respondOK(w, conv)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleConversationActions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/conversations/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_CONVERSATION_ID", "conversation id must be numeric")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		s.handleConversationGet(w, id)
		return
	}

	if len(parts) == 2 && parts[1] == "messages" {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		s.handleSendMessage(w, r, id)
		return
	}

	respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) handleConversationGet(w http.ResponseWriter, id int64) {
	conv, err := s.deps.Conversations.Get(id)
	if errors.Is(err, pmstore.ErrConversationNotFound) {
		respondError(w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "no such conversation")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CONVERSATION_LOOKUP_FAILED", err.Error())
		return
	}
	msgs, err := s.deps.Conversations.Messages(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CONVERSATION_LOOKUP_FAILED", err.Error())
		return
	}
	respondOK(w, map[string]any{"conversation": conv, "messages": msgs})
}

// handleSendMessage persists the user turn, assembles system context plus the
// full history, invokes the model, and persists the assistant turn. The user
// message survives even when the model call fails, so a retry keeps context.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required")
		return
	}
	conv, err := s.deps.Conversations.Get(id)
	if errors.Is(err, pmstore.ErrConversationNotFound) {
		respondError(w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "no such conversation")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CONVERSATION_LOOKUP_FAILED", err.Error())
		return
	}
	if _, err := s.deps.Conversations.AppendMessage(id, pmstore.RoleUser, req.Message, nil); err != nil {
		respondError(w, http.StatusInternalServerError, "MESSAGE_SAVE_FAILED", err.Error())
		return
	}

	messages := []llm.Message{}
	if s.deps.ChatContext != nil {
		// The expert agent reuses the planning briefing; it has no
		// context document of its own in the content store.
		contextAgent := conv.AgentType
		if contextAgent == pmstore.AgentExpert {
			contextAgent = pmstore.AgentPlanning
		}
		systemPrompt, err := s.deps.ChatContext(r.Context(), contextAgent)
		if err != nil {
			s.deps.Logger.Warn("chat context unavailable", "agent_type", contextAgent, "error", err)
		} else if systemPrompt != "" {
			messages = append(messages, llm.Message{Role: pmstore.RoleSystem, Content: systemPrompt})
		}
	}
	history, err := s.deps.Conversations.Messages(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CONVERSATION_LOOKUP_FAILED", err.Error())
		return
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.deps.LLM.Invoke(r.Context(), messages)
	if err != nil {
		respondError(w, http.StatusBadGateway, "LLM_FAILED", err.Error())
		return
	}
	msgID, err := s.deps.Conversations.AppendMessage(id, pmstore.RoleAssistant, reply, map[string]any{"model": s.deps.LLM.Model()})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "MESSAGE_SAVE_FAILED", err.Error())
		return
	}
	s.publish("conversations.updated", map[string]any{"conversation_id": id})
	respondOK(w, map[string]any{"id": msgID, "role": pmstore.RoleAssistant, "content": reply})
}
