package export

import (
	"encoding/base64"
	"strings"
)

// The computation result is a polymorphic shape that has drifted across
// service versions. Extraction decodes it as a closed set of variants tried
// in priority order; the first variant that produces anything wins and
// later ones are never attempted.

type payloadKind int

const (
	payloadNone payloadKind = iota
	payloadInlineDataURI
	payloadInlineBase64
	payloadInlineRaw
	payloadInlineBytes
	payloadRemoteURL
)

// payloadVariant is the decoded form of one result shape. Inline variants
// carry bytes; the remote variant carries the URL still to be fetched.
type payloadVariant struct {
	kind  payloadKind
	bytes []byte
	url   string
}

// inline payload fields, then URL-like fields, each in priority order.
var (
	inlineFields = []string{"data", "content"}
	urlFields    = []string{"href", "url", "downloadUrl", "link"}
)

// pickEntry selects a content-array entry: the one whose declared content
// type matches the preferred type (case-insensitive exact match), else the
// first. ok is false when the result has no content array.
func pickEntry(result map[string]any, preferred string) (map[string]any, bool) {
	raw, ok := result["content"].([]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}

	var first map[string]any
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if first == nil {
			first = entry
		}
		if preferred != "" && strings.EqualFold(entryContentType(entry), preferred) {
			return entry, true
		}
	}
	if first == nil {
		return nil, false
	}
	return first, true
}

// entryContentType reads the declared content type of a content entry.
func entryContentType(entry map[string]any) string {
	if ct, ok := entry["contentType"].(string); ok {
		return ct
	}
	return ""
}

// resolveVariant decodes the payload shape of a picked entry (or of the
// result object itself when there was no content array).
func resolveVariant(target map[string]any) payloadVariant {
	for _, field := range inlineFields {
		v, ok := target[field]
		if !ok || v == nil {
			continue
		}
		if variant := decodeInline(v); variant.kind != payloadNone {
			return variant
		}
	}
	for _, field := range urlFields {
		if u, ok := target[field].(string); ok && u != "" {
			return payloadVariant{kind: payloadRemoteURL, url: u}
		}
	}
	return payloadVariant{kind: payloadNone}
}

// decodeInline turns an inline payload value into bytes. Strings are
// data: URIs, base64, or raw binary; arrays and object-wrapped arrays
// ({"data":[...]}) are serialized byte buffers.
func decodeInline(v any) payloadVariant {
	switch val := v.(type) {
	case string:
		if val == "" {
			return payloadVariant{kind: payloadNone}
		}
		if strings.HasPrefix(val, "data:") {
			if b := decodeDataURI(val); len(b) > 0 {
				return payloadVariant{kind: payloadInlineDataURI, bytes: b}
			}
			return payloadVariant{kind: payloadNone}
		}
		if decoded, err := base64.StdEncoding.DecodeString(val); err == nil {
			return payloadVariant{kind: payloadInlineBase64, bytes: decoded}
		}
		return payloadVariant{kind: payloadInlineRaw, bytes: []byte(val)}
	case []any:
		if b, ok := numbersToBytes(val); ok {
			return payloadVariant{kind: payloadInlineBytes, bytes: b}
		}
	case map[string]any:
		// Serialized buffers come through as {"type":"Buffer","data":[...]}.
		if inner, ok := val["data"].([]any); ok {
			if b, ok := numbersToBytes(inner); ok {
				return payloadVariant{kind: payloadInlineBytes, bytes: b}
			}
		}
	}
	return payloadVariant{kind: payloadNone}
}

// decodeDataURI strips everything up to and including the first comma and
// base64-decodes the remainder. A remainder that is not valid base64 is
// used as raw bytes.
func decodeDataURI(uri string) []byte {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil
	}
	encoded := uri[idx+1:]
	if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return decoded
	}
	return []byte(encoded)
}

func numbersToBytes(values []any) ([]byte, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]byte, 0, len(values))
	for _, v := range values {
		n, ok := v.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, byte(int(n)))
	}
	return out, true
}
