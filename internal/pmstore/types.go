package pmstore

// Item types mirror the id prefixes used in the tracked repository
// (e.g. TERP-FEAT-001 -> TypeFeat).
const (
	TypeIdea    = "IDEA"
	TypeFeat    = "FEAT"
	TypeBug     = "BUG"
	TypeImprove = "IMPROVE"
	TypeTech    = "TECH"
)

const (
	StatusInbox      = "inbox"
	StatusBacklog    = "backlog"
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on-hold"
	StatusArchived   = "archived"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

const (
	SyncStatusInProgress = "in-progress"
	SyncStatusSuccess    = "success"
	SyncStatusFailed     = "failed"
)

var validTypes = map[string]struct{}{
	TypeIdea:    {},
	TypeFeat:    {},
	TypeBug:     {},
	TypeImprove: {},
	TypeTech:    {},
}

var validStatuses = map[string]struct{}{
	StatusInbox:      {},
	StatusBacklog:    {},
	StatusPlanned:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusOnHold:     {},
	StatusArchived:   {},
}

var validPriorities = map[string]struct{}{
	PriorityLow:      {},
	PriorityMedium:   {},
	PriorityHigh:     {},
	PriorityCritical: {},
}

func ValidType(t string) bool {
	_, ok := validTypes[t]
	return ok
}

func ValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

func ValidPriority(p string) bool {
	_, ok := validPriorities[p]
	return ok
}

// AISuggestions is the structured enrichment block produced by the triage
// layer. The sync path never writes it.
type AISuggestions struct {
	Where       []string `json:"where"`
	How         string   `json:"how"`
	Confidence  float64  `json:"confidence"`
	GeneratedAt string   `json:"generated_at"`
}

// Item is the domain view of a stored PM item. Timestamps are unix seconds.
type Item struct {
	ItemID        string         `json:"item_id"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Status        string         `json:"status"`
	Priority      string         `json:"priority,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Related       []string       `json:"related,omitempty"`
	GithubPath    string         `json:"github_path,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	AISuggestions *AISuggestions `json:"ai_suggestions,omitempty"`
	LastSyncedAt  int64          `json:"last_synced_at,omitempty"`
	CreatedAt     int64          `json:"created_at"`
	UpdatedAt     int64          `json:"updated_at"`
}

// Descriptor is one reconciliation input, parsed from a metadata.json file in
// the content store. Only the fields the content store owns are present.
type Descriptor struct {
	ItemID      string
	Type        string
	Title       string
	Description string
	Status      string
	Tags        []string
	Related     []string
	GithubPath  string
	Metadata    map[string]any
	CreatedAt   int64
	UpdatedAt   int64
}

// ItemUpdate carries a partial user edit. Nil fields are left unchanged.
type ItemUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Tags        *[]string
	Related     *[]string
}

// SyncRun is the domain view of one sync attempt.
type SyncRun struct {
	ID          int64          `json:"id"`
	SyncType    string         `json:"sync_type"`
	Status      string         `json:"status"`
	ItemCount   int            `json:"item_count"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	StartedAt   int64          `json:"started_at"`
	CompletedAt int64          `json:"completed_at,omitempty"`
}
