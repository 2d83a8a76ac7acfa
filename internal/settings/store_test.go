package settings

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
)

type memoryPersist struct {
	panels  map[string]map[string]interface{}
	loadErr error
	saves   int
}

func newMemoryPersist() *memoryPersist {
	return &memoryPersist{panels: make(map[string]map[string]interface{})}
}

func (m *memoryPersist) LoadPanel(panelID string) (map[string]interface{}, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.panels[panelID], nil
}

func (m *memoryPersist) SavePanel(panelID string, values map[string]interface{}) error {
	m.saves++
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	m.panels[panelID] = copied
	return nil
}

func TestDefaultsWhenNothingPersisted(t *testing.T) {
	store := NewStore(newMemoryPersist(), zap.NewNop())

	v, ok := store.Value("llm", "Model Provider")
	if !ok || v != "BitNet" {
		t.Errorf("Model Provider = %v, want BitNet default", v)
	}
	v, ok = store.Value("asr", "Model")
	if !ok || v != "base" {
		t.Errorf("ASR Model = %v, want base default", v)
	}
}

func TestPersistedValuesOverlayDefaults(t *testing.T) {
	persist := newMemoryPersist()
	persist.panels["llm"] = map[string]interface{}{"Temperature": 1.5}

	store := NewStore(persist, zap.NewNop())

	v, _ := store.Value("llm", "Temperature")
	if v != 1.5 {
		t.Errorf("Temperature = %v, want persisted 1.5", v)
	}
	v, _ = store.Value("llm", "Max Tokens")
	if v != 2048 {
		t.Errorf("Max Tokens = %v, want untouched default", v)
	}
}

func TestLoadFailureFallsBackToDefaults(t *testing.T) {
	persist := newMemoryPersist()
	persist.loadErr = errors.New("disk gone")

	store := NewStore(persist, zap.NewNop())

	v, ok := store.Value("tts", "Speed")
	if !ok || v != 1 {
		t.Errorf("Speed = %v, want default despite load failure", v)
	}
}

func TestSetPersistsAndNotifies(t *testing.T) {
	persist := newMemoryPersist()
	store := NewStore(persist, zap.NewNop())

	var gotPanel string
	var gotValues map[string]interface{}
	store.SetOnChange(func(panelID string, values map[string]interface{}) {
		gotPanel = panelID
		gotValues = values
	})

	if !store.Set("llm", "Temperature", 0.2) {
		t.Fatal("set on a known panel should succeed")
	}
	if gotPanel != "llm" {
		t.Errorf("listener panel = %q, want llm", gotPanel)
	}
	if gotValues["Temperature"] != 0.2 {
		t.Errorf("listener snapshot Temperature = %v, want 0.2", gotValues["Temperature"])
	}
	if persist.panels["llm"]["Temperature"] != 0.2 {
		t.Error("change should be persisted")
	}

	if store.Set("nope", "Temperature", 1) {
		t.Error("set on an unknown panel should be rejected")
	}
}

func TestApplyProvidersSwitchesModel(t *testing.T) {
	store := NewStore(newMemoryPersist(), zap.NewNop())

	store.ApplyProviders(map[string]entities.ProviderInfo{
		"BitNet": {Installed: true, Models: []string{"bitnet-b1.58-2B-4T"}},
	})

	v, _ := store.Value("llm", "Model")
	if v != "bitnet-b1.58-2B-4T" {
		t.Errorf("Model = %v, want the provider's first model", v)
	}

	// Subsequent reconciliation with the model already offered must not
	// touch the selection.
	store.Set("llm", "Model", "bitnet-b1.58-2B-4T")
	store.ApplyProviders(map[string]entities.ProviderInfo{
		"BitNet": {Installed: true, Models: []string{"other", "bitnet-b1.58-2B-4T"}},
	})
	v, _ = store.Value("llm", "Model")
	if v != "bitnet-b1.58-2B-4T" {
		t.Errorf("Model = %v, want selection kept when still offered", v)
	}
}

func TestApplyProvidersIgnoresUnknownProvider(t *testing.T) {
	store := NewStore(newMemoryPersist(), zap.NewNop())

	store.ApplyProviders(map[string]entities.ProviderInfo{
		"Ollama": {Installed: true, Models: []string{"llama3"}},
	})

	v, _ := store.Value("llm", "Model")
	if v != "BitNet 2B" {
		t.Errorf("Model = %v, want default kept when active provider unreported", v)
	}
}

func TestAppSettingsDerivation(t *testing.T) {
	store := NewStore(newMemoryPersist(), zap.NewNop())
	store.Set("llm", "Max Tokens", 1024)
	store.Set("rag", "Enabled", true)
	store.SetDeveloperMode(true)

	got := store.AppSettings()
	if got.Model != "BitNet 2B" || got.MaxTokens != 1024 || !got.RAGEnabled || !got.DeveloperMode {
		t.Errorf("derived settings = %+v", got)
	}
	if !got.ASREnabled || !got.TTSEnabled || !got.StreamResponses {
		t.Errorf("toggle defaults wrong: %+v", got)
	}
	if got.Temperature != 0.7 || got.ContextWindow != 2048 {
		t.Errorf("numeric defaults wrong: %+v", got)
	}
}

func TestReplaceSwapsWholePanel(t *testing.T) {
	persist := newMemoryPersist()
	store := NewStore(persist, zap.NewNop())

	if !store.Replace("tools", map[string]interface{}{"Web Search": false}) {
		t.Fatal("replace on a known panel should succeed")
	}
	values, _ := store.Values("tools")
	if len(values) != 1 || values["Web Search"] != false {
		t.Errorf("values = %v, want just the replacement", values)
	}
	if _, ok := persist.panels["tools"]; !ok {
		t.Error("replacement should be persisted")
	}
}
