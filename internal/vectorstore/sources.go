package vectorstore

import (
	"encoding/json"
	"fmt"
)

// sourcesEnvelope versions the stored source chunk texts so the blob stays
// decodable on its own, like the index blob.
type sourcesEnvelope struct {
	Version int      `json:"v"`
	Sources []string `json:"sources"`
}

const sourcesVersion = 1

// EncodeSources serializes the ordered source texts of a session.
func EncodeSources(sources []string) ([]byte, error) {
	blob, err := json.Marshal(sourcesEnvelope{Version: sourcesVersion, Sources: sources})
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	return blob, nil
}

// DecodeSources restores the ordered source texts from a stored blob.
func DecodeSources(blob []byte) ([]string, error) {
	var env sourcesEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if env.Version != sourcesVersion {
		return nil, fmt.Errorf("decode sources: unsupported version %d", env.Version)
	}
	return env.Sources, nil
}
