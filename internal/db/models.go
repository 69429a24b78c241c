package db

import "gorm.io/datatypes"

type PmItem struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID        string         `gorm:"column:item_id;uniqueIndex;not null"`
	Type          string         `gorm:"column:type;not null"`
	Title         string         `gorm:"column:title;not null;default:''"`
	Description   string         `gorm:"column:description;not null;default:''"`
	Status        string         `gorm:"column:status;not null;default:'inbox'"`
	Priority      string         `gorm:"column:priority;not null;default:'medium'"`
	Tags          datatypes.JSON `gorm:"column:tags"`
	Related       datatypes.JSON `gorm:"column:related"`
	GithubPath    string         `gorm:"column:github_path;not null;default:''"`
	Metadata      datatypes.JSON `gorm:"column:metadata"`
	AISuggestions datatypes.JSON `gorm:"column:ai_suggestions"`
	LastSyncedAt  int64          `gorm:"column:last_synced_at;not null;default:0"`
	CreatedAt     int64          `gorm:"column:created_at;not null;default:0"`
	UpdatedAt     int64          `gorm:"column:updated_at;not null;default:0"`
}

func (PmItem) TableName() string { return "pm_items" }

type SyncRecord struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SyncType    string         `gorm:"column:sync_type;not null"`
	Status      string         `gorm:"column:status;not null;default:'in-progress'"`
	ItemCount   int            `gorm:"column:item_count;not null;default:0"`
	Error       string         `gorm:"column:error;not null;default:''"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
	StartedAt   int64          `gorm:"column:started_at;not null;default:0"`
	CompletedAt int64          `gorm:"column:completed_at;not null;default:0"`
}

func (SyncRecord) TableName() string { return "sync_records" }

type Conversation struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	AgentType     string         `gorm:"column:agent_type;not null"`
	Title         string         `gorm:"column:title;not null;default:''"`
	RelatedItemID string         `gorm:"column:related_item_id;not null;default:''"`
	Metadata      datatypes.JSON `gorm:"column:metadata"`
	CreatedAt     int64          `gorm:"column:created_at;not null;default:0"`
	UpdatedAt     int64          `gorm:"column:updated_at;not null;default:0"`
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID int64          `gorm:"column:conversation_id;not null;index"`
	Role           string         `gorm:"column:role;not null"`
	Content        string         `gorm:"column:content;not null;default:''"`
	Metadata       datatypes.JSON `gorm:"column:metadata"`
	CreatedAt      int64          `gorm:"column:created_at;not null;default:0"`
}

func (Message) TableName() string { return "messages" }

type QueueItem struct {
	ID                  int64          `gorm:"column:id;primaryKey;autoIncrement"`
	PmItemID            string         `gorm:"column:pm_item_id;not null;index"`
	Title               string         `gorm:"column:title;not null;default:''"`
	Description         string         `gorm:"column:description;not null;default:''"`
	Diagnosis           string         `gorm:"column:diagnosis;not null;default:''"`
	Priority            string         `gorm:"column:priority;not null;default:'medium'"`
	EstimatedMinutes    int            `gorm:"column:estimated_minutes;not null;default:0"`
	Dependencies        datatypes.JSON `gorm:"column:dependencies"`
	QARequirements      string         `gorm:"column:qa_requirements;not null;default:''"`
	ImplementationSteps datatypes.JSON `gorm:"column:implementation_steps"`
	Status              string         `gorm:"column:status;not null;default:'queued'"`
	QueueOrder          int            `gorm:"column:queue_order;not null;default:0"`
	CreatedAt           int64          `gorm:"column:created_at;not null;default:0"`
	UpdatedAt           int64          `gorm:"column:updated_at;not null;default:0"`
	CompletedAt         int64          `gorm:"column:completed_at;not null;default:0"`
}

func (QueueItem) TableName() string { return "implementation_queue" }
