package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
	"github.com/kaushikharsh99/MARK-2/internal/transport"
)

type fakeChannel struct {
	mu       sync.Mutex
	sent     []transport.ChatRequest
	sendOK   bool
	statuses []transport.Status
}

func (f *fakeChannel) Send(text string, speakResponse bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, transport.ChatRequest{Text: text, SpeakResponse: speakResponse})
	return f.sendOK
}

func (f *fakeChannel) SetStatus(s transport.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, s)
}

func (f *fakeChannel) Status() transport.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return transport.StatusOnline
	}
	return f.statuses[len(f.statuses)-1]
}

func (f *fakeChannel) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, req := range f.sent {
		out[i] = req.Text
	}
	return out
}

type fakeBackend struct {
	clearErr  error
	loadErr   error
	clearHits int
	loadHits  int
}

func (f *fakeBackend) ClearMemory(ctx context.Context) error {
	f.clearHits++
	return f.clearErr
}

func (f *fakeBackend) LoadModel(ctx context.Context) error {
	f.loadHits++
	return f.loadErr
}

type recordingNotifier struct {
	mu        sync.Mutex
	infos     []string
	successes []string
	errors    []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func newTestCoordinator(sendOK bool) (*Coordinator, *fakeChannel, *fakeBackend, *recordingNotifier) {
	channel := &fakeChannel{sendOK: sendOK}
	backend := &fakeBackend{}
	notifier := &recordingNotifier{}
	coord := NewCoordinator(channel, backend, nil, notifier, zap.NewNop())
	return coord, channel, backend, notifier
}

func TestSendCreatesConversationWithDerivedTitle(t *testing.T) {
	coord, channel, _, _ := newTestCoordinator(true)

	long := strings.Repeat("a", 50)
	if !coord.Send(long, false) {
		t.Fatal("expected send to succeed")
	}

	conv := coord.Active()
	if conv == nil {
		t.Fatal("expected an active conversation after first send")
	}
	want := strings.Repeat("a", 40) + "…"
	if conv.Title != want {
		t.Errorf("title = %q, want %q", conv.Title, want)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Role != entities.MessageRoleUser {
		t.Fatalf("expected one optimistic user message, got %d", len(conv.Messages))
	}
	if got := channel.sentTexts(); len(got) != 1 || got[0] != long {
		t.Errorf("sent %v, want the raw content once", got)
	}
	if !coord.Generating() {
		t.Error("expected generating flag after a successful send")
	}
}

func TestSendBlankContentIsNoOp(t *testing.T) {
	coord, channel, _, _ := newTestCoordinator(true)

	if coord.Send("   \n\t", true) {
		t.Error("blank send should report failure")
	}
	if coord.Active() != nil {
		t.Error("blank send should not create a conversation")
	}
	if len(channel.sentTexts()) != 0 {
		t.Error("blank send should not reach the channel")
	}
}

func TestSendBlankContentWithAttachmentsGoesThrough(t *testing.T) {
	coord, channel, _, _ := newTestCoordinator(true)

	if !coord.Send("  ", false, "report.pdf") {
		t.Fatal("send with an attachment should not be rejected")
	}
	conv := coord.Active()
	if conv == nil {
		t.Fatal("expected a conversation")
	}
	if got := conv.Messages[0].Attachments; len(got) != 1 || got[0] != "report.pdf" {
		t.Errorf("attachments = %v, want [report.pdf]", got)
	}
	if len(channel.sentTexts()) != 1 {
		t.Error("message should reach the channel")
	}
}

func TestSendWhileDisconnectedKeepsOptimisticMessage(t *testing.T) {
	coord, _, _, notifier := newTestCoordinator(false)

	if coord.Send("hello", false) {
		t.Error("send should fail when the channel is down")
	}

	conv := coord.Active()
	if conv == nil {
		t.Fatal("optimistic conversation should still exist")
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("expected only the optimistic user message, got %d", len(conv.Messages))
	}
	if coord.Generating() {
		t.Error("generating flag should clear after a failed send")
	}
	if len(notifier.errors) != 1 {
		t.Errorf("expected one error notice, got %d", len(notifier.errors))
	}
}

func TestSendWhileGeneratingIsNoOp(t *testing.T) {
	coord, channel, _, _ := newTestCoordinator(true)

	coord.Send("first", false)
	if coord.Send("second", false) {
		t.Error("send during generation should be rejected")
	}
	if got := channel.sentTexts(); len(got) != 1 {
		t.Errorf("channel saw %v, want just the first message", got)
	}
}

func TestHandleInboundAppendsToActiveAtArrival(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(true)

	coord.Send("question", false)
	first := coord.Active()

	second := coord.NewConversation()
	coord.HandleInbound(transport.Envelope{Sender: transport.SenderJarvis, Text: "answer"})

	if len(first.Messages) != 1 {
		t.Errorf("original conversation grew to %d messages", len(first.Messages))
	}
	if len(second.Messages) != 1 || second.Messages[0].Content != "answer" {
		t.Fatalf("reply should land on the conversation active at arrival, got %v", second.Messages)
	}
	if coord.Generating() {
		t.Error("generating flag should clear on reply")
	}
}

func TestHandleInboundWakeWordOpensMic(t *testing.T) {
	coord, _, _, notifier := newTestCoordinator(true)

	var micCalls []bool
	coord.SetOnMicOpen(func(open bool) { micCalls = append(micCalls, open) })

	coord.HandleInbound(transport.Envelope{Type: transport.TypeWakeWordDetected, Text: "Wake word detected"})

	if !coord.MicOpen() {
		t.Error("wake word should open the mic")
	}
	if len(micCalls) != 1 || !micCalls[0] {
		t.Errorf("mic hook calls = %v, want [true]", micCalls)
	}
	if len(notifier.successes) != 1 {
		t.Errorf("expected one success notice, got %d", len(notifier.successes))
	}
}

type recordingSynth struct {
	calls chan string
}

func (s *recordingSynth) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	s.calls <- text
	out := make(chan []byte, 1)
	out <- []byte("pcm")
	close(out)
	return out, nil
}

type recordingPlayer struct {
	calls chan []byte
}

func (p *recordingPlayer) Play(ctx context.Context, audio []byte) error {
	p.calls <- audio
	return nil
}

func TestSilentSendReplyIsNotSpoken(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(true)
	synth := &recordingSynth{calls: make(chan string, 1)}
	player := &recordingPlayer{calls: make(chan []byte, 1)}
	coord.SetSpeech(player, synth)

	coord.Send("hello", false)
	coord.HandleInbound(transport.Envelope{Sender: transport.SenderJarvis, Text: "hi there"})

	select {
	case text := <-synth.calls:
		t.Errorf("reply %q was synthesized although the send did not ask for speech", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSpokenSendReplyIsSynthesized(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(true)
	synth := &recordingSynth{calls: make(chan string, 1)}
	player := &recordingPlayer{calls: make(chan []byte, 1)}
	coord.SetSpeech(player, synth)

	coord.Send("hello", true)
	coord.HandleInbound(transport.Envelope{Sender: transport.SenderJarvis, Text: "hi there"})

	select {
	case text := <-synth.calls:
		if text != "hi there" {
			t.Errorf("synthesized %q, want the reply text", text)
		}
	case <-time.After(time.Second):
		t.Fatal("reply was never synthesized although the send asked for speech")
	}
	select {
	case <-player.calls:
	case <-time.After(time.Second):
		t.Fatal("synthesized audio was never played")
	}
}

func TestRegenerateResendsPrecedingUserMessage(t *testing.T) {
	coord, channel, _, _ := newTestCoordinator(true)

	coord.Send("tell me a joke", false)
	coord.HandleInbound(transport.Envelope{Sender: transport.SenderJarvis, Text: "no"})

	conv := coord.Active()
	replyID := conv.Messages[1].ID
	coord.Regenerate(replyID)

	if got := channel.sentTexts(); len(got) != 2 || got[1] != "tell me a joke" {
		t.Fatalf("sent %v, want the user message re-sent", got)
	}
	if _, ok := conv.MessageByID(replyID); ok {
		t.Error("regenerated reply should be deleted")
	}
}

func TestRegenerateWithoutPrecedingUserMessageIsNoOp(t *testing.T) {
	coord, channel, _, _ := newTestCoordinator(true)

	conv := coord.NewConversation()
	reply := entities.NewAssistantMessage("orphan")
	conv.Append(reply)

	coord.Regenerate(reply.ID)

	if len(channel.sentTexts()) != 0 {
		t.Error("nothing should be sent when no preceding user message exists")
	}
	if _, ok := conv.MessageByID(reply.ID); !ok {
		t.Error("the target message should survive a no-op regenerate")
	}
}

func TestClearChatEmptiesLocallyEvenWhenBackendFails(t *testing.T) {
	coord, _, backend, _ := newTestCoordinator(true)
	backend.clearErr = errors.New("backend down")

	coord.Send("remember this", false)
	coord.HandleInbound(transport.Envelope{Sender: transport.SenderJarvis, Text: "noted"})

	coord.ClearChat(context.Background())

	if backend.clearHits != 1 {
		t.Errorf("backend clear called %d times, want 1", backend.clearHits)
	}
	if conv := coord.Active(); len(conv.Messages) != 0 {
		t.Errorf("local messages should be cleared unconditionally, got %d", len(conv.Messages))
	}
}

func TestExportRoundTrip(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(true)

	conv := coord.NewConversation()
	conv.Append(entities.NewUserMessage("hi"))
	conv.Append(entities.NewAssistantMessage("hello"))
	coord.RenameConversation(conv.ID, "Greeting")

	doc, ok := coord.Export(conv.ID)
	if !ok {
		t.Fatal("export should find the conversation")
	}
	want := "# Greeting\n\n## User\n\nhi\n\n---\n\n## JARVIS\n\nhello"
	if doc != want {
		t.Errorf("export mismatch:\n got %q\nwant %q", doc, want)
	}

	if _, ok := coord.Export("missing"); ok {
		t.Error("export of an unknown conversation should fail")
	}
}

func TestLoadModelStatusFlow(t *testing.T) {
	coord, channel, backend, _ := newTestCoordinator(true)

	if err := coord.LoadModel(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if backend.loadHits != 1 {
		t.Errorf("backend load called %d times, want 1", backend.loadHits)
	}
	want := []transport.Status{transport.StatusLoading, transport.StatusOnline}
	if len(channel.statuses) != 2 || channel.statuses[0] != want[0] || channel.statuses[1] != want[1] {
		t.Errorf("statuses = %v, want %v", channel.statuses, want)
	}

	backend.loadErr = errors.New("no model")
	if err := coord.LoadModel(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if channel.Status() != transport.StatusError {
		t.Errorf("status = %v, want error after failed load", channel.Status())
	}
}

func TestDeleteRenamePin(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(true)

	conv := coord.NewConversation()
	other := coord.NewConversation()

	coord.RenameConversation(conv.ID, "Kept")
	coord.TogglePin(conv.ID)
	if !conv.Pinned || conv.Title != "Kept" {
		t.Errorf("rename/pin did not apply: pinned=%v title=%q", conv.Pinned, conv.Title)
	}
	coord.TogglePin(conv.ID)
	if conv.Pinned {
		t.Error("second toggle should unpin")
	}

	coord.DeleteConversation(other.ID)
	if coord.Active() != nil {
		t.Error("deleting the active conversation should leave none selected")
	}
	if len(coord.Conversations()) != 1 {
		t.Errorf("conversation count = %d, want 1", len(coord.Conversations()))
	}
}

func TestDeleteMessage(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(true)

	coord.Send("hi", false)
	conv := coord.Active()
	msgID := conv.Messages[0].ID

	coord.DeleteMessage(msgID)
	if len(conv.Messages) != 0 {
		t.Errorf("message should be removed, got %d left", len(conv.Messages))
	}
}
