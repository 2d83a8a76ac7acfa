package repositories

import (
	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

// ConversationStore persists conversations locally so they survive restarts.
type ConversationStore interface {
	SaveConversation(conv *entities.Conversation) error
	AppendMessage(conversationID string, msg entities.Message) error
	DeleteMessage(conversationID, messageID string) error
	DeleteConversation(id string) error
	SetTitle(id, title string) error
	SetPinned(id string, pinned bool) error
	ClearMessages(conversationID string) error
	LoadConversations() ([]*entities.Conversation, error)
}

// SettingsStore persists per-panel settings snapshots keyed by the stable
// panel identifier.
type SettingsStore interface {
	LoadPanel(panelID string) (map[string]interface{}, error)
	SavePanel(panelID string, values map[string]interface{}) error
}
