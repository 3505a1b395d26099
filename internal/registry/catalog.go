package registry

import (
	"strings"

	"pinktranscriber/pkg/types"
)

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Catalog lists the whisper.cpp model files the server knows how to fetch.
var Catalog = []types.Model{
	{ID: "ggml-tiny.bin", Name: "Tiny Multilingual", SizeBytes: 75_000_000},
	{ID: "ggml-base.bin", Name: "Base Multilingual", SizeBytes: 142_000_000},
	{ID: "ggml-small.bin", Name: "Small Multilingual", SizeBytes: 466_000_000},
	{ID: "ggml-medium.bin", Name: "Medium Multilingual", SizeBytes: 1_500_000_000},
	{ID: "ggml-large-v3.bin", Name: "Large V3 Multilingual", SizeBytes: 3_100_000_000},
	{ID: "ggml-large-v3-q8_0.bin", Name: "Large V3 Multilingual (Q8_0)", Quant: "q8_0", SizeBytes: 1_660_000_000},
	{ID: "ggml-large-v3-q5_0.bin", Name: "Large V3 Multilingual (Q5_0)", Quant: "q5_0", SizeBytes: 1_080_000_000},
	{ID: "ggml-large-v3-turbo.bin", Name: "Large V3 Turbo", SizeBytes: 1_620_000_000},
	{ID: "ggml-large-v3-turbo-q8_0.bin", Name: "Large V3 Turbo (Q8_0)", Quant: "q8_0", SizeBytes: 874_000_000},
}

func init() {
	for i := range Catalog {
		Catalog[i].URL = hfBase + Catalog[i].ID
	}
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (types.Model, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return types.Model{}, false
}

// quantOf extracts the quantization suffix from a ggml file name
// ("ggml-large-v3-q8_0.bin" -> "q8_0").
func quantOf(name string) string {
	base := strings.TrimSuffix(strings.ToLower(name), ".bin")
	i := strings.LastIndex(base, "-")
	if i < 0 {
		return ""
	}
	s := base[i+1:]
	if len(s) >= 2 && s[0] == 'q' && s[1] >= '0' && s[1] <= '9' {
		return s
	}
	return ""
}
