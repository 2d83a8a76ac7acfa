package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

// Client talks to the assistant backend's REST surface. It backs the
// telemetry poller, the transcription pipeline, and the one-shot control
// actions (model load, memory clear, provider install, model download,
// config push).
type Client struct {
	baseURL    string
	bearer     string
	httpClient *http.Client
	logger     *zap.Logger
}

// ActionResult is the backend's reply to install and download requests.
type ActionResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewClient creates a Client for the given base URL. bearer may be empty.
func NewClient(baseURL, bearer string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bearer:     bearer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// SystemSpecs fetches the static hardware description.
func (c *Client) SystemSpecs(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/system/specs", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SystemOverview fetches the live utilization snapshot.
func (c *Client) SystemOverview(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/system/overview", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Providers fetches the provider install states and their local models.
func (c *Client) Providers(ctx context.Context) (map[string]entities.ProviderInfo, error) {
	var out map[string]entities.ProviderInfo
	if err := c.getJSON(ctx, "/api/providers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarketplaceModels fetches the downloadable model catalog per provider.
func (c *Client) MarketplaceModels(ctx context.Context) (map[string][]entities.MarketplaceModel, error) {
	var out map[string][]entities.MarketplaceModel
	if err := c.getJSON(ctx, "/api/marketplace/models", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadModel asks the backend to (re)load its active model.
func (c *Client) LoadModel(ctx context.Context) error {
	return c.postJSON(ctx, "/api/model/load", nil, nil)
}

// ClearMemory asks the backend to drop its conversational context.
func (c *Client) ClearMemory(ctx context.Context) error {
	return c.postJSON(ctx, "/api/memory/clear", nil, nil)
}

// InstallProvider triggers a provider installation on the backend host. The
// password travels in the request body the way the backend expects; it is
// never logged.
func (c *Client) InstallProvider(ctx context.Context, provider, password string) (ActionResult, error) {
	body := map[string]string{"provider": provider, "password": password}
	var result ActionResult
	if err := c.postJSON(ctx, "/api/providers/install", body, &result); err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// DownloadModel starts a marketplace model download on the backend.
func (c *Client) DownloadModel(ctx context.Context, provider, modelName, url string) (ActionResult, error) {
	body := map[string]string{"provider": provider, "model_name": modelName}
	if url != "" {
		body["url"] = url
	}
	var result ActionResult
	if err := c.postJSON(ctx, "/api/marketplace/download", body, &result); err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

// PushConfig mirrors one settings panel's values to the backend.
func (c *Client) PushConfig(ctx context.Context, panelID string, values map[string]interface{}) error {
	return c.postJSON(ctx, "/api/config", map[string]interface{}{panelID: values}, nil)
}

// Transcribe uploads a WAV clip and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, clip []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "clip.wav")
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(clip); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/audio/transcribe", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return out.Text, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
}

// statusError surfaces the backend's own message when the error body
// carries one.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return fmt.Errorf("backend: %s", payload.Message)
		}
		if payload.Detail != "" {
			return fmt.Errorf("backend: %s", payload.Detail)
		}
	}
	return fmt.Errorf("backend: unexpected status %d", resp.StatusCode)
}
