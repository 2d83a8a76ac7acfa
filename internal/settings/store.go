package settings

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/entities"
	"github.com/kaushikharsh99/MARK-2/domain/repositories"
)

// Store holds the live per-panel values: schema defaults overlaid with the
// persisted snapshot, then with runtime changes. Every change is persisted
// and pushed to the registered change listener.
type Store struct {
	persist repositories.SettingsStore
	logger  *zap.Logger

	mu            sync.Mutex
	panels        []Panel
	values        map[string]map[string]interface{}
	developerMode bool
	onChange      func(panelID string, values map[string]interface{})
}

// NewStore builds the value map for every panel. A persistence failure for
// one panel is logged and that panel falls back to defaults.
func NewStore(persist repositories.SettingsStore, logger *zap.Logger) *Store {
	s := &Store{
		persist: persist,
		logger:  logger,
		panels:  Panels(),
		values:  make(map[string]map[string]interface{}),
	}

	for _, panel := range s.panels {
		vals := make(map[string]interface{})
		for _, f := range panel.Fields {
			if f.Default != nil {
				vals[f.Label] = f.Default
			}
		}
		if persist != nil {
			stored, err := persist.LoadPanel(panel.ID)
			if err != nil {
				logger.Warn("Failed to load panel settings, using defaults",
					zap.String("panel", panel.ID),
					zap.Error(err))
			} else {
				for label, v := range stored {
					vals[label] = v
				}
			}
		}
		s.values[panel.ID] = vals
	}
	return s
}

// SetOnChange registers the listener invoked after every value change with
// the panel's full value snapshot.
func (s *Store) SetOnChange(f func(panelID string, values map[string]interface{})) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = f
}

// Panels returns the panel catalog.
func (s *Store) Panels() []Panel {
	return Panels()
}

// Values returns a copy of a panel's current values.
func (s *Store) Values(panelID string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, ok := s.values[panelID]
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(vals))
	for k, v := range vals {
		out[k] = v
	}
	return out, true
}

// Value returns one field's current value.
func (s *Store) Value(panelID, label string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, ok := s.values[panelID]
	if !ok {
		return nil, false
	}
	v, ok := vals[label]
	return v, ok
}

// Set updates one field, persists the panel snapshot, and notifies the
// change listener. Unknown panels are rejected; unknown labels within a
// known panel are stored as-is so forward-compatible snapshots round-trip.
func (s *Store) Set(panelID, label string, value interface{}) bool {
	s.mu.Lock()
	vals, ok := s.values[panelID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	vals[label] = value
	s.persistLocked(panelID)
	snapshot, listener := s.snapshotLocked(panelID)
	s.mu.Unlock()

	if listener != nil {
		listener(panelID, snapshot)
	}
	return true
}

// Replace swaps a panel's whole value map, as when the control API submits
// a full form.
func (s *Store) Replace(panelID string, values map[string]interface{}) bool {
	s.mu.Lock()
	if _, ok := s.values[panelID]; !ok {
		s.mu.Unlock()
		return false
	}
	next := make(map[string]interface{}, len(values))
	for k, v := range values {
		next[k] = v
	}
	s.values[panelID] = next
	s.persistLocked(panelID)
	snapshot, listener := s.snapshotLocked(panelID)
	s.mu.Unlock()

	if listener != nil {
		listener(panelID, snapshot)
	}
	return true
}

// ApplyProviders reconciles each provider panel's Model field with the
// models the backend reports for the panel's active provider: when the
// current model is not offered by that provider, the first offered model is
// selected instead.
func (s *Store) ApplyProviders(providers map[string]entities.ProviderInfo) {
	type change struct {
		panelID  string
		snapshot map[string]interface{}
	}
	var changes []change

	s.mu.Lock()
	listener := s.onChange
	for _, panel := range s.panels {
		providerField := panel.ProviderField()
		if providerField == "" {
			continue
		}
		vals := s.values[panel.ID]
		active, _ := vals[providerField].(string)
		info, ok := providers[active]
		if !ok || len(info.Models) == 0 {
			continue
		}
		current, _ := vals["Model"].(string)
		if contains(info.Models, current) {
			continue
		}
		vals["Model"] = info.Models[0]
		s.persistLocked(panel.ID)
		snapshot, _ := s.snapshotLocked(panel.ID)
		changes = append(changes, change{panelID: panel.ID, snapshot: snapshot})
	}
	s.mu.Unlock()

	if listener != nil {
		for _, ch := range changes {
			listener(ch.panelID, ch.snapshot)
		}
	}
}

// SetDeveloperMode flips the developer flag. It lives outside the panel
// schema because it is never persisted per panel or pushed to the backend.
func (s *Store) SetDeveloperMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.developerMode = on
}

// DeveloperMode reports the developer flag.
func (s *Store) DeveloperMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.developerMode
}

// AppSettings derives the flat runtime record from the current panel values.
func (s *Store) AppSettings() entities.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	llm := s.values["llm"]
	return entities.AppSettings{
		Model:           asString(llm["Model"], "BitNet 2B"),
		Temperature:     asFloat(llm["Temperature"], 0.7),
		MaxTokens:       int(asFloat(llm["Max Tokens"], 2048)),
		ContextWindow:   int(asFloat(llm["Context Window"], 2048)),
		RAGEnabled:      asBool(s.values["rag"]["Enabled"], false),
		ASREnabled:      asBool(s.values["asr"]["Enabled"], true),
		TTSEnabled:      asBool(s.values["tts"]["Enabled"], true),
		StreamResponses: asBool(llm["Stream Responses"], true),
		DeveloperMode:   s.developerMode,
	}
}

func (s *Store) persistLocked(panelID string) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SavePanel(panelID, s.values[panelID]); err != nil {
		s.logger.Error("Failed to persist panel settings",
			zap.String("panel", panelID),
			zap.Error(err))
	}
}

func (s *Store) snapshotLocked(panelID string) (map[string]interface{}, func(string, map[string]interface{})) {
	vals := s.values[panelID]
	out := make(map[string]interface{}, len(vals))
	for k, v := range vals {
		out[k] = v
	}
	return out, s.onChange
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func asString(v interface{}, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func asFloat(v interface{}, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

func asBool(v interface{}, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}
