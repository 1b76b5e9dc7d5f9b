package export

import (
	"encoding/base64"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickEntryPrefersMatchingContentType(t *testing.T) {
	result := map[string]any{
		"content": []any{
			map[string]any{"contentType": "application/zip", "data": "eg=="},
			map[string]any{"contentType": "Application/PDF", "data": "eQ=="},
		},
	}

	entry, ok := pickEntry(result, "application/pdf")
	require.True(t, ok)
	assert.Equal(t, "Application/PDF", entryContentType(entry))

	// no preference: first entry wins
	entry, ok = pickEntry(result, "")
	require.True(t, ok)
	assert.Equal(t, "application/zip", entryContentType(entry))

	// unmatched preference also falls back to the first entry
	entry, ok = pickEntry(result, "model/obj")
	require.True(t, ok)
	assert.Equal(t, "application/zip", entryContentType(entry))
}

func TestPickEntryNoContentArray(t *testing.T) {
	_, ok := pickEntry(map[string]any{"href": "https://example.com/x"}, "")
	assert.False(t, ok)

	_, ok = pickEntry(map[string]any{"content": []any{}}, "")
	assert.False(t, ok)

	_, ok = pickEntry(map[string]any{"content": []any{"not-an-object"}}, "")
	assert.False(t, ok)
}

func TestResolveVariantDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))
	v := resolveVariant(map[string]any{"data": "data:application/pdf;base64," + payload})
	assert.Equal(t, payloadInlineDataURI, v.kind)
	assert.Equal(t, []byte("pdf-bytes"), v.bytes)
}

func TestResolveVariantBareBase64(t *testing.T) {
	v := resolveVariant(map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("hello"))})
	assert.Equal(t, payloadInlineBase64, v.kind)
	assert.Equal(t, []byte("hello"), v.bytes)
}

func TestResolveVariantRawString(t *testing.T) {
	// not valid base64, so the string is the payload itself
	v := resolveVariant(map[string]any{"data": "solid ascii-geometry!"})
	assert.Equal(t, payloadInlineRaw, v.kind)
	assert.Equal(t, []byte("solid ascii-geometry!"), v.bytes)
}

func TestResolveVariantByteArray(t *testing.T) {
	v := resolveVariant(map[string]any{"data": []any{float64(104), float64(105)}})
	assert.Equal(t, payloadInlineBytes, v.kind)
	assert.Equal(t, []byte("hi"), v.bytes)
}

func TestResolveVariantWrappedBuffer(t *testing.T) {
	v := resolveVariant(map[string]any{
		"content": map[string]any{
			"type": "Buffer",
			"data": []any{float64(104), float64(105)},
		},
	})
	assert.Equal(t, payloadInlineBytes, v.kind)
	assert.Equal(t, []byte("hi"), v.bytes)
}

func TestResolveVariantURLFieldsInOrder(t *testing.T) {
	v := resolveVariant(map[string]any{
		"url":  "https://example.com/second",
		"href": "https://example.com/first",
	})
	assert.Equal(t, payloadRemoteURL, v.kind)
	assert.Equal(t, "https://example.com/first", v.url)

	v = resolveVariant(map[string]any{"downloadUrl": "https://example.com/dl"})
	assert.Equal(t, payloadRemoteURL, v.kind)
	assert.Equal(t, "https://example.com/dl", v.url)
}

func TestResolveVariantInlineBeatsURL(t *testing.T) {
	v := resolveVariant(map[string]any{
		"data": base64.StdEncoding.EncodeToString([]byte("x")),
		"href": "https://example.com/never-fetched",
	})
	assert.Equal(t, payloadInlineBase64, v.kind)
}

func TestResolveVariantNothing(t *testing.T) {
	assert.Equal(t, payloadNone, resolveVariant(map[string]any{}).kind)
	assert.Equal(t, payloadNone, resolveVariant(map[string]any{"data": ""}).kind)
	assert.Equal(t, payloadNone, resolveVariant(map[string]any{"data": "data:application/pdf;base64,"}).kind)
}

func TestDataURIDecodeProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("data URI round-trips arbitrary bytes", prop.ForAll(
		func(data []byte) bool {
			if len(data) == 0 {
				return true
			}
			uri := "data:application/octet-stream;base64," +
				base64.StdEncoding.EncodeToString(data)
			v := resolveVariant(map[string]any{"data": uri})
			return v.kind == payloadInlineDataURI && string(v.bytes) == string(data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
