package crawl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the JSON document returned to clients.
type Payload struct {
	// Content holds the collected text encoded as a JSON string literal,
	// so clients decode it twice.
	Content     string   `json:"content"`
	UniqueLinks []string `json:"uniqueLinks"`
	Links       []string `json:"links"`
}

// Payload builds the client-facing document for r.
func (r *Result) Payload() (Payload, error) {
	content, err := QuoteJSON(r.Content)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Content:     content,
		UniqueLinks: nonNil(r.UniqueLinks),
		Links:       nonNil(r.Links),
	}, nil
}

// QuoteJSON encodes s as a JSON string literal without HTML escaping.
func QuoteJSON(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
