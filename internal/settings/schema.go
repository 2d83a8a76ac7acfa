package settings

// FieldType enumerates the widget kinds a settings field can render as.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldSelect FieldType = "select"
	FieldSlider FieldType = "slider"
	FieldToggle FieldType = "toggle"
)

// Field is one configurable knob inside a panel.
type Field struct {
	Label       string      `json:"label"`
	Type        FieldType   `json:"type"`
	Description string      `json:"description,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Min         float64     `json:"min,omitempty"`
	Max         float64     `json:"max,omitempty"`
	Step        float64     `json:"step,omitempty"`
	Default     interface{} `json:"default_value,omitempty"`
	Advanced    bool        `json:"advanced,omitempty"`
}

// Panel groups related fields under a stable identifier. The identifier is
// what gets persisted and pushed to the backend config endpoint; the title
// is display text only.
type Panel struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// ProviderField returns the label of the field that selects this panel's
// active provider, or "" when the panel has none.
func (p Panel) ProviderField() string {
	switch p.ID {
	case "llm":
		return "Model Provider"
	case "asr":
		return "ASR Provider"
	case "tts":
		return "TTS Provider"
	}
	return ""
}

// Field returns the field with the given label.
func (p Panel) Field(label string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Label == label {
			return f, true
		}
	}
	return Field{}, false
}

// Panels returns the full panel catalog in display order.
func Panels() []Panel {
	return []Panel{
		{
			ID:    "llm",
			Title: "LLM Settings",
			Fields: []Field{
				{Label: "Model Provider", Type: FieldSelect, Description: "Select the backend provider for the language model.", Options: []string{"BitNet", "Llama.cpp", "Ollama", "vLLM"}, Default: "BitNet"},
				{Label: "Model", Type: FieldSelect, Description: "Select the language model to use for responses.", Options: []string{"BitNet 2B"}, Default: "BitNet 2B"},
				{Label: "Temperature", Type: FieldSlider, Description: "Controls randomness. Lower values are more deterministic.", Min: 0, Max: 2, Step: 0.1, Default: 0.7},
				{Label: "Max Tokens", Type: FieldSlider, Description: "Maximum number of tokens in the response.", Min: 256, Max: 4096, Step: 256, Default: 2048},
				{Label: "Context Window", Type: FieldSlider, Description: "Number of tokens the model can consider.", Min: 512, Max: 32768, Step: 512, Default: 2048, Advanced: true},
				{Label: "CPU Threads", Type: FieldSlider, Description: "Number of CPU threads to use for inference.", Min: 1, Max: 64, Step: 1, Default: 4, Advanced: true},
				{Label: "GPU Layers", Type: FieldSlider, Description: "Number of layers to offload to GPU (0 for CPU only).", Min: 0, Max: 128, Step: 1, Default: 0, Advanced: true},
				{Label: "System Prompt", Type: FieldText, Description: "Instructions that define the assistant's behavior.", Default: "You are JARVIS, a helpful AI assistant."},
				{Label: "Top P", Type: FieldSlider, Description: "Nucleus sampling threshold.", Min: 0, Max: 1, Step: 0.05, Default: 1, Advanced: true},
				{Label: "Frequency Penalty", Type: FieldSlider, Description: "Reduces repetition of token sequences.", Min: 0, Max: 2, Step: 0.1, Default: 0, Advanced: true},
				{Label: "Stream Responses", Type: FieldToggle, Description: "Display responses as they are generated.", Default: true, Advanced: true},
			},
		},
		{
			ID:    "asr",
			Title: "ASR Settings",
			Fields: []Field{
				{Label: "ASR Provider", Type: FieldSelect, Description: "Select the backend provider for speech recognition.", Options: []string{"Whisper.cpp", "Faster-Whisper", "Vosk"}, Default: "Whisper.cpp"},
				{Label: "Model", Type: FieldSelect, Description: "Select the ASR model to use.", Options: []string{"tiny", "base", "small"}, Default: "base"},
				{Label: "Language", Type: FieldSelect, Description: "Language for speech recognition.", Options: []string{"Auto", "English", "Spanish", "French", "German"}, Default: "Auto"},
				{Label: "Enabled", Type: FieldToggle, Description: "Enable automatic speech recognition.", Default: true},
				{Label: "Silence Detection", Type: FieldToggle, Description: "Automatically detect end of speech.", Default: true, Advanced: true},
				{Label: "Noise Suppression", Type: FieldToggle, Description: "Filter background noise.", Default: false, Advanced: true},
			},
		},
		{
			ID:    "tts",
			Title: "TTS Settings",
			Fields: []Field{
				{Label: "TTS Provider", Type: FieldSelect, Description: "Select the backend provider for speech output.", Options: []string{"Piper (Local)", "Coqui TTS", "XTTS"}, Default: "Piper (Local)"},
				{Label: "Model", Type: FieldSelect, Description: "Select the voice model to use.", Options: []string{"en_US-ryan-high"}, Default: "en_US-ryan-high"},
				{Label: "Speed", Type: FieldSlider, Description: "Speech rate multiplier.", Min: 0.5, Max: 2, Step: 0.1, Default: 1},
				{Label: "Enabled", Type: FieldToggle, Description: "Enable text-to-speech output.", Default: true},
				{Label: "Auto-play Responses", Type: FieldToggle, Description: "Automatically speak AI responses.", Default: false, Advanced: true},
			},
		},
		{
			ID:    "rag",
			Title: "RAG Settings",
			Fields: []Field{
				{Label: "Vector Store", Type: FieldSelect, Description: "Backend for vector storage.", Options: []string{"ChromaDB", "FAISS"}, Default: "ChromaDB"},
				{Label: "Embedding Model", Type: FieldSelect, Description: "Model for generating embeddings.", Options: []string{"all-MiniLM-L6-v2", "bge-small-en-v1.5"}, Default: "all-MiniLM-L6-v2"},
				{Label: "Enabled", Type: FieldToggle, Description: "Enable retrieval-augmented generation.", Default: false},
				{Label: "Chunk Size", Type: FieldSlider, Description: "Size of text chunks for indexing.", Min: 128, Max: 2048, Step: 128, Default: 512, Advanced: true},
				{Label: "Top K Results", Type: FieldSlider, Description: "Number of relevant chunks to retrieve.", Min: 1, Max: 20, Step: 1, Default: 5, Advanced: true},
			},
		},
		{
			ID:    "tools",
			Title: "Tools",
			Fields: []Field{
				{Label: "Web Search", Type: FieldToggle, Description: "Allow searching the web for information.", Default: true},
				{Label: "Code Interpreter", Type: FieldToggle, Description: "Execute code in a sandboxed environment.", Default: false},
				{Label: "File Upload", Type: FieldToggle, Description: "Allow file uploads for analysis.", Default: true},
				{Label: "Image Generation", Type: FieldToggle, Description: "Generate images from text descriptions.", Default: false},
				{Label: "API Calling", Type: FieldToggle, Description: "Enable external API integrations.", Default: false, Advanced: true},
			},
		},
	}
}
