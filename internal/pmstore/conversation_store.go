package pmstore

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	dbmodel "pmhub/server/internal/db"
)

const (
	AgentInbox    = "inbox"
	AgentPlanning = "planning"
	AgentQA       = "qa"
	AgentExpert   = "expert"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var validAgentTypes = map[string]struct{}{
	AgentInbox:    {},
	AgentPlanning: {},
	AgentQA:       {},
	AgentExpert:   {},
}

func ValidAgentType(t string) bool {
	_, ok := validAgentTypes[t]
	return ok
}

var ErrConversationNotFound = errors.New("conversation not found")

type Conversation struct {
	ID            int64          `json:"id"`
	AgentType     string         `json:"agent_type"`
	Title         string         `json:"title"`
	RelatedItemID string         `json:"related_item_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     int64          `json:"created_at"`
	UpdatedAt     int64          `json:"updated_at"`
}

type ChatMessage struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      int64          `json:"created_at"`
}

type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) (*ConversationStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &ConversationStore{db: db}, nil
}

func (s *ConversationStore) Create(agentType, title, relatedItemID string) (int64, error) {
	if !ValidAgentType(agentType) {
		return 0, errors.New("invalid agent type: " + agentType)
	}
	now := time.Now().UTC().Unix()
	row := dbmodel.Conversation{
		AgentType:     agentType,
		Title:         title,
		RelatedItemID: relatedItemID,
		Metadata:      mustJSON(map[string]any{}),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// List returns conversations most recent first, optionally filtered by agent.
func (s *ConversationStore) List(agentType string) ([]Conversation, error) {
	q := s.db.Order("updated_at DESC, id DESC")
	if agentType != "" {
		q = q.Where("agent_type = ?", agentType)
	}
	var rows []dbmodel.Conversation
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, conversationFromRow(row))
	}
	return out, nil
}

func (s *ConversationStore) Get(id int64) (*Conversation, error) {
	var row dbmodel.Conversation
	err := s.db.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	conv := conversationFromRow(row)
	return &conv, nil
}

func (s *ConversationStore) AppendMessage(conversationID int64, role, content string, metadata map[string]any) (int64, error) {
	now := time.Now().UTC().Unix()
	row := dbmodel.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       mustJSON(emptyMapIfNil(metadata)),
		CreatedAt:      now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&dbmodel.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *ConversationStore) Messages(conversationID int64) ([]ChatMessage, error) {
	var rows []dbmodel.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ChatMessage, 0, len(rows))
	for _, row := range rows {
		msg := ChatMessage{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			Role:           row.Role,
			Content:        row.Content,
			CreatedAt:      row.CreatedAt,
		}
		_ = json.Unmarshal(row.Metadata, &msg.Metadata)
		out = append(out, msg)
	}
	return out, nil
}

func conversationFromRow(row dbmodel.Conversation) Conversation {
	conv := Conversation{
		ID:            row.ID,
		AgentType:     row.AgentType,
		Title:         row.Title,
		RelatedItemID: row.RelatedItemID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	_ = json.Unmarshal(row.Metadata, &conv.Metadata)
	return conv
}
