package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

const (
	defaultModel        = "gemini-2.0-flash"
	defaultSystemPrompt = "You are JARVIS, a helpful AI assistant."
	replyTimeout        = 60 * time.Second
)

// Gemini answers chat messages directly through the Gemini API, bypassing
// the local assistant backend. Selected with CHAT_BACKEND=gemini.
type Gemini struct {
	client       *genai.Client
	logger       *zap.Logger
	model        string
	systemPrompt string
	temperature  float32
	maxTokens    int32
}

// NewGemini creates a Gemini chat backend from the environment.
func NewGemini(logger *zap.Logger) (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Gemini{
		client:       client,
		logger:       logger,
		model:        model,
		systemPrompt: defaultSystemPrompt,
		temperature:  0.7,
		maxTokens:    2048,
	}, nil
}

// Configure overrides the generation knobs from the live settings.
func (g *Gemini) Configure(settings entities.AppSettings, systemPrompt string) {
	if settings.Temperature > 0 {
		g.temperature = float32(settings.Temperature)
	}
	if settings.MaxTokens > 0 {
		g.maxTokens = int32(settings.MaxTokens)
	}
	if systemPrompt != "" {
		g.systemPrompt = systemPrompt
	}
}

// Reply generates one assistant turn given the conversation so far.
func (g *Gemini) Reply(ctx context.Context, history []entities.Message, content string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+2)
	contents = append(contents, genai.NewContentFromText(g.systemPrompt, genai.RoleUser))
	for _, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == entities.MessageRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(content, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("empty response")
	}

	g.logger.Info("Generated reply",
		zap.String("model", g.model),
		zap.Int("history_length", len(history)),
		zap.Int("reply_chars", len(text)))
	return text, nil
}
