package design

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema validates uploaded design documents. The store accepts
// arbitrary payload fields, but a document without a non-empty name can
// never participate in version resolution, so that much is enforced at the
// boundary.
const documentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"uploadedAt": {"type": "string"},
		"_id": {"type": "string"}
	}
}`

var compiledDocumentSchema = jsonschema.MustCompileString("document.json", documentSchema)

// ValidateUpload checks a decoded upload body against the document schema.
func ValidateUpload(body map[string]any) error {
	// jsonschema validates generic JSON values; map[string]any is already
	// the decoded form handlers work with.
	if err := compiledDocumentSchema.Validate(anyMap(body)); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	return nil
}

func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
