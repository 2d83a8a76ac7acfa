package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

// Store is the SQLite-backed implementation of the conversation and
// settings persistence ports. One Store serves both since they share a
// database file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			pinned INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			timestamp DATETIME NOT NULL,
			FOREIGN KEY(conversation_id) REFERENCES conversations(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, timestamp);`,
		`CREATE TABLE IF NOT EXISTS settings (
			panel_id TEXT PRIMARY KEY,
			value_json TEXT NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveConversation upserts a conversation row and its messages.
func (s *Store) SaveConversation(conv *entities.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO conversations (id, title, pinned, created_at) VALUES (?, ?, ?, ?)",
		conv.ID, conv.Title, conv.Pinned, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	for _, msg := range conv.Messages {
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO messages (id, conversation_id, role, content, token_count, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
			msg.ID, conv.ID, string(msg.Role), msg.Content, msg.TokenCount, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	return tx.Commit()
}

// AppendMessage stores one message under an existing conversation.
func (s *Store) AppendMessage(conversationID string, msg entities.Message) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO messages (id, conversation_id, role, content, token_count, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, conversationID, string(msg.Role), msg.Content, msg.TokenCount, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// DeleteMessage removes one message.
func (s *Store) DeleteMessage(conversationID, messageID string) error {
	_, err := s.db.Exec(
		"DELETE FROM messages WHERE id = ? AND conversation_id = ?",
		messageID, conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation and all its messages.
func (s *Store) DeleteConversation(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return tx.Commit()
}

// SetTitle updates a conversation's title.
func (s *Store) SetTitle(id, title string) error {
	_, err := s.db.Exec("UPDATE conversations SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return nil
}

// SetPinned updates a conversation's pinned flag.
func (s *Store) SetPinned(id string, pinned bool) error {
	_, err := s.db.Exec("UPDATE conversations SET pinned = ? WHERE id = ?", pinned, id)
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}
	return nil
}

// ClearMessages deletes every message of one conversation, keeping the
// conversation row.
func (s *Store) ClearMessages(conversationID string) error {
	_, err := s.db.Exec("DELETE FROM messages WHERE conversation_id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// LoadConversations restores all conversations newest-first with their
// messages in chat order.
func (s *Store) LoadConversations() ([]*entities.Conversation, error) {
	rows, err := s.db.Query(
		"SELECT id, title, pinned, created_at FROM conversations ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*entities.Conversation
	for rows.Next() {
		conv := &entities.Conversation{Messages: make([]entities.Message, 0)}
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.Pinned, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, conv := range conversations {
		msgs, err := s.loadMessages(conv.ID)
		if err != nil {
			return nil, err
		}
		conv.Messages = msgs
	}
	return conversations, nil
}

func (s *Store) loadMessages(conversationID string) ([]entities.Message, error) {
	rows, err := s.db.Query(
		"SELECT id, role, content, token_count, timestamp FROM messages WHERE conversation_id = ? ORDER BY timestamp",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]entities.Message, 0)
	for rows.Next() {
		var msg entities.Message
		var role string
		var ts time.Time
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.TokenCount, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = entities.MessageRole(role)
		msg.Timestamp = ts
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// LoadPanel returns one settings panel's persisted snapshot, or nil when
// none was saved yet.
func (s *Store) LoadPanel(panelID string) (map[string]interface{}, error) {
	var raw string
	err := s.db.QueryRow("SELECT value_json FROM settings WHERE panel_id = ?", panelID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load panel: %w", err)
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode panel snapshot: %w", err)
	}
	return values, nil
}

// SavePanel stores one settings panel's snapshot as a JSON document.
func (s *Store) SavePanel(panelID string, values map[string]interface{}) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode panel snapshot: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO settings (panel_id, value_json) VALUES (?, ?)",
		panelID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to save panel: %w", err)
	}
	return nil
}
