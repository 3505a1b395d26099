package types

// Model represents a whisper model file known to the catalog or found on disk.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: ggml-large-v3.bin
	ID string `json:"id" example:"ggml-large-v3.bin"`
	// Human-friendly name.
	// example: Large V3 Multilingual
	Name string `json:"name" example:"Large V3 Multilingual"`
	// Absolute path to the model file on disk (empty when not downloaded).
	// example: /home/user/.local/share/pink-transcriber/models/ggml-large-v3.bin
	Path string `json:"path,omitempty"`
	// Quantization variant; empty for full-precision weights.
	// example: q8_0
	Quant string `json:"quant,omitempty" example:"q8_0"`
	// Size of the file in bytes (approximate for catalog entries).
	SizeBytes int64 `json:"size_bytes,omitempty"`
	// Download location for catalog entries.
	URL string `json:"url,omitempty"`
}
