package audit

import "time"

// Event is an append-only record of an operator action.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor capture is best-effort; do not block operator actions on audit failures.
type Event struct {
	ID     string `json:"id"`
	Action Action `json:"action"`

	// OperatorID is empty when operator auth is disabled.
	OperatorID string `json:"operator_id,omitempty"`
	Role       string `json:"role,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`

	Message string `json:"message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Action string

const (
	ActionQueueStarted      Action = "queue_started"
	ActionQueueStopped      Action = "queue_stopped"
	ActionNumbersReplaced   Action = "numbers_replaced"
	ActionCallPlaced        Action = "call_placed"
	ActionLogsCleared       Action = "logs_cleared"
	ActionSettingsUpdated   Action = "settings_updated"
	ActionArticlesGenerated Action = "articles_generated"
	ActionArticlesCleared   Action = "articles_cleared"
	ActionChatCommand       Action = "chat_command"
)
