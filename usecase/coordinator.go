package usecase

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
	"github.com/kaushikharsh99/MARK-2/domain/repositories"
	"github.com/kaushikharsh99/MARK-2/internal/transport"
)

// Channel is the outbound chat surface the coordinator talks to.
type Channel interface {
	Send(text string, speakResponse bool) bool
	SetStatus(transport.Status)
	Status() transport.Status
}

// BackendControl covers the backend actions the coordinator triggers
// outside the chat channel.
type BackendControl interface {
	ClearMemory(ctx context.Context) error
	LoadModel(ctx context.Context) error
}

// Refresher re-fetches the telemetry snapshot on demand.
type Refresher interface {
	Poll(ctx context.Context)
}

// Coordinator owns the conversation list and the active conversation. It
// turns transcribed or typed text into outbound messages, routes inbound
// replies and wake-word events, and performs the local list mutations
// (delete, rename, pin, regenerate, export, clear).
//
// Inbound replies land on whichever conversation is active at arrival time.
// There is no per-request correlation id, so concurrent generation across
// conversations is not supported.
type Coordinator struct {
	channel  Channel
	backend  BackendControl
	store    repositories.ConversationStore
	notifier repositories.Notifier
	player   repositories.SpeechPlayer
	tts      repositories.TextToSpeech
	direct   repositories.ChatBackend
	refresh  Refresher
	logger   *zap.Logger

	mu            sync.Mutex
	conversations []*entities.Conversation
	activeID      string
	generating    bool
	speakPending  bool
	micOpen       bool
	onMicOpen     func(open bool)
}

// NewCoordinator creates a coordinator and restores persisted conversations.
// player, tts, direct, and refresh may be nil.
func NewCoordinator(
	channel Channel,
	backend BackendControl,
	store repositories.ConversationStore,
	notifier repositories.Notifier,
	logger *zap.Logger,
) *Coordinator {
	c := &Coordinator{
		channel:  channel,
		backend:  backend,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}

	if store != nil {
		restored, err := store.LoadConversations()
		if err != nil {
			logger.Error("Failed to restore conversations", zap.Error(err))
		} else {
			c.conversations = restored
		}
	}
	return c
}

// SetSpeech wires optional speech output: the player for backend audio and
// the synthesizer for replies that should be spoken but arrived silent.
func (c *Coordinator) SetSpeech(player repositories.SpeechPlayer, tts repositories.TextToSpeech) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = player
	c.tts = tts
}

// SetDirectChat routes outbound messages to a direct LLM backend instead of
// the WebSocket channel.
func (c *Coordinator) SetDirectChat(backend repositories.ChatBackend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direct = backend
}

// SetRefresher wires the telemetry poller used after a model load.
func (c *Coordinator) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = r
}

// SetOnMicOpen registers the mic reconciliation hook (the voice engine's
// SetMicOpen).
func (c *Coordinator) SetOnMicOpen(f func(open bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMicOpen = f
}

// Send appends an optimistic user message, creating a conversation when
// none is active, and forwards the text to the backend. Blank content with
// no attachments and sends during an in-flight generation are no-ops.
// Returns false when the message could not be handed to the backend.
func (c *Coordinator) Send(content string, speakResponse bool, attachments ...string) bool {
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return false
	}

	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return false
	}

	userMsg := entities.NewUserMessage(content, attachments...)
	conv := c.activeLocked()
	if conv == nil {
		conv = entities.NewConversation(&userMsg)
		c.conversations = append([]*entities.Conversation{conv}, c.conversations...)
		c.activeID = conv.ID
		c.persistConversation(conv)
	} else {
		firstMessage := len(conv.Messages) == 0
		conv.Append(userMsg)
		c.persistMessage(conv.ID, userMsg)
		if firstMessage {
			c.persistTitle(conv.ID, conv.Title)
		}
	}

	c.generating = true
	c.speakPending = speakResponse
	direct := c.direct
	c.mu.Unlock()

	c.channel.SetStatus(transport.StatusGenerating)

	if direct != nil {
		go c.sendDirect(conv, content)
		return true
	}

	if !c.channel.Send(content, speakResponse) {
		c.notifier.Error("Not connected to the backend.")
		c.mu.Lock()
		c.generating = false
		c.speakPending = false
		c.mu.Unlock()
		c.channel.SetStatus(transport.StatusOnline)
		return false
	}
	return true
}

// sendDirect asks the configured LLM for a reply and feeds it back through
// the same inbound path the WebSocket uses.
func (c *Coordinator) sendDirect(conv *entities.Conversation, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c.mu.Lock()
	history := make([]entities.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if m.Content != content || m.Role != entities.MessageRoleUser {
			history = append(history, m)
		}
	}
	direct := c.direct
	c.mu.Unlock()

	reply, err := direct.Reply(ctx, history, content)
	if err != nil {
		c.logger.Error("Direct chat backend failed", zap.Error(err))
		c.notifier.Error("Generation failed.")
		c.mu.Lock()
		c.generating = false
		c.speakPending = false
		c.mu.Unlock()
		c.channel.SetStatus(transport.StatusOnline)
		return
	}

	c.HandleInbound(transport.Envelope{Sender: transport.SenderJarvis, Text: reply})
}

// HandleInbound is the single registered handler for the chat channel. Wake
// word events open the mic; assistant replies are appended to the active
// conversation and clear the generating flag.
func (c *Coordinator) HandleInbound(env transport.Envelope) {
	if env.IsWakeWord() {
		c.notifier.Success(env.Text)
		c.setMicOpen(true)
		return
	}

	if !env.IsAssistantReply() {
		c.logger.Warn("Ignoring inbound message with unknown shape")
		return
	}

	msg := entities.NewAssistantMessage(env.Text)

	c.mu.Lock()
	conv := c.activeLocked()
	if conv == nil {
		c.generating = false
		c.speakPending = false
		c.mu.Unlock()
		c.logger.Warn("Dropping assistant reply: no active conversation")
		c.channel.SetStatus(transport.StatusOnline)
		return
	}
	conv.Append(msg)
	c.persistMessage(conv.ID, msg)
	c.generating = false
	speakRequested := c.speakPending
	c.speakPending = false
	c.mu.Unlock()

	c.channel.SetStatus(transport.StatusOnline)

	if env.Audio != "" {
		go c.playAudio(env.Audio)
	} else if speakRequested {
		go c.speak(env.Text)
	}
}

// speak synthesizes a reply whose send requested speech but whose envelope
// carried no backend audio.
func (c *Coordinator) speak(text string) {
	c.mu.Lock()
	player := c.player
	synthesizer := c.tts
	c.mu.Unlock()
	if player == nil || synthesizer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	chunks, err := synthesizer.ConvertTextToSpeech(ctx, text)
	if err != nil {
		c.logger.Error("Speech synthesis failed", zap.Error(err))
		return
	}
	var audio []byte
	for chunk := range chunks {
		audio = append(audio, chunk...)
	}
	if len(audio) == 0 {
		return
	}
	if err := player.Play(ctx, audio); err != nil {
		c.logger.Error("Audio playback failed", zap.Error(err))
	}
}

// playAudio decodes the reply's base64 WAV payload and plays it.
func (c *Coordinator) playAudio(encoded string) {
	c.mu.Lock()
	player := c.player
	c.mu.Unlock()
	if player == nil {
		return
	}

	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.logger.Error("Failed to decode reply audio", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := player.Play(ctx, audio); err != nil {
		c.logger.Error("Audio playback failed", zap.Error(err))
		c.notifier.Error("Audio playback failed.")
	}
}

// Regenerate deletes the target message and re-sends the nearest preceding
// user message in the same conversation. A no-op when no preceding user
// message exists.
func (c *Coordinator) Regenerate(messageID string) {
	c.mu.Lock()
	conv := c.activeLocked()
	if conv == nil {
		c.mu.Unlock()
		return
	}
	userMsg, ok := conv.PrecedingUserMessage(messageID)
	if !ok {
		c.mu.Unlock()
		return
	}
	conv.RemoveMessage(messageID)
	c.deleteMessagePersisted(conv.ID, messageID)
	c.mu.Unlock()

	c.Send(userMsg.Content, false)
}

// DeleteMessage removes one message from the active conversation.
func (c *Coordinator) DeleteMessage(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := c.activeLocked()
	if conv == nil {
		return
	}
	if conv.RemoveMessage(messageID) {
		c.deleteMessagePersisted(conv.ID, messageID)
	}
}

// NewConversation creates an empty conversation and makes it active.
func (c *Coordinator) NewConversation() *entities.Conversation {
	conv := entities.NewConversation(nil)

	c.mu.Lock()
	c.conversations = append([]*entities.Conversation{conv}, c.conversations...)
	c.activeID = conv.ID
	c.persistConversation(conv)
	c.mu.Unlock()

	return conv
}

// SelectConversation makes the given conversation active. Returns false for
// an unknown id.
func (c *Coordinator) SelectConversation(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.conversations {
		if conv.ID == id {
			c.activeID = id
			return true
		}
	}
	return false
}

// DeleteConversation removes a conversation. Deleting the active one leaves
// no conversation selected.
func (c *Coordinator) DeleteConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, conv := range c.conversations {
		if conv.ID == id {
			c.conversations = append(c.conversations[:i], c.conversations[i+1:]...)
			if c.activeID == id {
				c.activeID = ""
			}
			if c.store != nil {
				if err := c.store.DeleteConversation(id); err != nil {
					c.logger.Error("Failed to delete conversation", zap.Error(err))
				}
			}
			return
		}
	}
}

// RenameConversation sets an explicit title.
func (c *Coordinator) RenameConversation(id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.conversations {
		if conv.ID == id {
			conv.Title = title
			c.persistTitle(id, title)
			return
		}
	}
}

// TogglePin flips a conversation's pinned flag.
func (c *Coordinator) TogglePin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.conversations {
		if conv.ID == id {
			conv.Pinned = !conv.Pinned
			if c.store != nil {
				if err := c.store.SetPinned(id, conv.Pinned); err != nil {
					c.logger.Error("Failed to persist pin", zap.Error(err))
				}
			}
			return
		}
	}
}

// ClearChat asks the backend to clear its memory, then unconditionally
// empties the active conversation's local message list. The local clear
// never depends on the backend call succeeding.
func (c *Coordinator) ClearChat(ctx context.Context) {
	c.mu.Lock()
	conv := c.activeLocked()
	c.mu.Unlock()
	if conv == nil {
		return
	}

	if c.backend != nil {
		if err := c.backend.ClearMemory(ctx); err != nil {
			c.logger.Warn("Backend memory clear failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	conv.Clear()
	if c.store != nil {
		if err := c.store.ClearMessages(conv.ID); err != nil {
			c.logger.Error("Failed to clear stored messages", zap.Error(err))
		}
	}
	c.mu.Unlock()
}

// LoadModel runs the model-load flow: loading while the request is in
// flight, error on failure, online on success, with a telemetry refresh
// afterwards.
func (c *Coordinator) LoadModel(ctx context.Context) error {
	c.channel.SetStatus(transport.StatusLoading)

	if err := c.backend.LoadModel(ctx); err != nil {
		c.logger.Error("Model load failed", zap.Error(err))
		c.channel.SetStatus(transport.StatusError)
		return err
	}

	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()
	if refresh != nil {
		refresh.Poll(ctx)
	}

	c.channel.SetStatus(transport.StatusOnline)
	return nil
}

// Export renders a conversation as a markdown transcript: the title as a
// top-level heading, then one section per message separated by horizontal
// rules. Returns false for an unknown id.
func (c *Coordinator) Export(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var conv *entities.Conversation
	for _, candidate := range c.conversations {
		if candidate.ID == id {
			conv = candidate
			break
		}
	}
	if conv == nil {
		return "", false
	}

	sections := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		label := "JARVIS"
		if msg.Role == entities.MessageRoleUser {
			label = "User"
		}
		sections = append(sections, "## "+label+"\n\n"+msg.Content)
	}

	doc := "# " + conv.Title
	if len(sections) > 0 {
		doc += "\n\n" + strings.Join(sections, "\n\n---\n\n")
	}
	return doc, true
}

// StopGenerating clears the generating flag without waiting for a reply.
func (c *Coordinator) StopGenerating() {
	c.mu.Lock()
	c.generating = false
	c.speakPending = false
	c.mu.Unlock()
	c.channel.SetStatus(transport.StatusOnline)
}

// Generating reports whether a reply is in flight.
func (c *Coordinator) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// MicOpen reports the caller-facing mic flag.
func (c *Coordinator) MicOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micOpen
}

// SetMicOpen flips the mic flag and reconciles the voice engine.
func (c *Coordinator) SetMicOpen(open bool) {
	c.setMicOpen(open)
}

// NoteMicState records a mic state change reported by the voice engine
// itself, such as a silence-driven auto-stop, without re-triggering the
// engine.
func (c *Coordinator) NoteMicState(open bool) {
	c.mu.Lock()
	c.micOpen = open
	c.mu.Unlock()
}

func (c *Coordinator) setMicOpen(open bool) {
	c.mu.Lock()
	c.micOpen = open
	hook := c.onMicOpen
	c.mu.Unlock()
	if hook != nil {
		hook(open)
	}
}

// Conversations returns the conversation list in display order.
func (c *Coordinator) Conversations() []*entities.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entities.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Active returns the active conversation, or nil.
func (c *Coordinator) Active() *entities.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *Coordinator) activeLocked() *entities.Conversation {
	if c.activeID == "" {
		return nil
	}
	for _, conv := range c.conversations {
		if conv.ID == c.activeID {
			return conv
		}
	}
	return nil
}

func (c *Coordinator) persistConversation(conv *entities.Conversation) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveConversation(conv); err != nil {
		c.logger.Error("Failed to persist conversation", zap.Error(err))
	}
}

func (c *Coordinator) persistMessage(convID string, msg entities.Message) {
	if c.store == nil {
		return
	}
	if err := c.store.AppendMessage(convID, msg); err != nil {
		c.logger.Error("Failed to persist message", zap.Error(err))
	}
}

func (c *Coordinator) persistTitle(convID, title string) {
	if c.store == nil {
		return
	}
	if err := c.store.SetTitle(convID, title); err != nil {
		c.logger.Error("Failed to persist title", zap.Error(err))
	}
}

func (c *Coordinator) deleteMessagePersisted(convID, messageID string) {
	if c.store == nil {
		return
	}
	if err := c.store.DeleteMessage(convID, messageID); err != nil {
		c.logger.Error("Failed to delete stored message", zap.Error(err))
	}
}
