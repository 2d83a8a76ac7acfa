package entities

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// titleRunes is how much of the first message becomes the conversation title.
const titleRunes = 40

// Message represents a single chat message. Immutable once created except
// for removal from its conversation.
type Message struct {
	ID         string      `json:"id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	TokenCount int         `json:"token_count,omitempty"`

	// Attachments holds display names of files attached by the user. The
	// chat protocol carries text only, so the contents are never uploaded.
	Attachments []string `json:"attachments,omitempty"`
}

// NewUserMessage creates a user message with an estimated token count.
func NewUserMessage(content string, attachments ...string) Message {
	words := len(strings.Fields(content))
	return Message{
		ID:          uuid.NewString(),
		Role:        MessageRoleUser,
		Content:     content,
		Timestamp:   time.Now(),
		TokenCount:  int(math.Ceil(float64(words) * 1.3)),
		Attachments: attachments,
	}
}

// NewAssistantMessage creates an assistant message with an estimated token count.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       MessageRoleAssistant,
		Content:    content,
		Timestamp:  time.Now(),
		TokenCount: (len(content) + 3) / 4,
	}
}

// Conversation represents one chat thread. At most one conversation is
// active at a time; the chat order is the insertion order of Messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// NewConversation creates a conversation, optionally seeded with a first
// message that also determines the title.
func NewConversation(first *Message) *Conversation {
	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     "New Chat",
		Messages:  make([]Message, 0),
		CreatedAt: time.Now(),
	}
	if first != nil {
		if title := DeriveTitle(first.Content); title != "" {
			conv.Title = title
		}
		conv.Messages = append(conv.Messages, *first)
	}
	return conv
}

// DeriveTitle returns the leading 40 characters of content, with an
// ellipsis appended when the content was truncated.
func DeriveTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= titleRunes {
		return string(runes)
	}
	title := strings.TrimSpace(string(runes[:titleRunes]))
	return title + "…"
}

// Append adds a message to the conversation. The first appended message
// sets the title unless it was explicitly renamed before any message existed.
func (c *Conversation) Append(msg Message) {
	if len(c.Messages) == 0 {
		if title := DeriveTitle(msg.Content); title != "" {
			c.Title = title
		}
	}
	c.Messages = append(c.Messages, msg)
}

// RemoveMessage deletes the message with the given ID. Returns false when
// no such message exists.
func (c *Conversation) RemoveMessage(id string) bool {
	for i, m := range c.Messages {
		if m.ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// MessageByID returns the message with the given ID.
func (c *Conversation) MessageByID(id string) (Message, bool) {
	for _, m := range c.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// PrecedingUserMessage returns the nearest user message before the message
// with the given ID, scanning backwards in chat order.
func (c *Conversation) PrecedingUserMessage(id string) (Message, bool) {
	idx := -1
	for i, m := range c.Messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Message{}, false
	}
	for i := idx - 1; i >= 0; i-- {
		if c.Messages[i].Role == MessageRoleUser {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// Clear empties the message list, keeping the conversation itself.
func (c *Conversation) Clear() {
	c.Messages = c.Messages[:0]
}

// Validate validates the conversation data
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return errors.New("conversation id is required")
	}
	for _, m := range c.Messages {
		if m.Role != MessageRoleUser && m.Role != MessageRoleAssistant {
			return errors.New("invalid message role")
		}
	}
	return nil
}
