package export

import (
	"fmt"
	"regexp"
	"strings"
)

// canonical MIME types for known format tokens.
var formatContentTypes = map[string]string{
	"pdf": "application/pdf",
	"zip": "application/zip",
	"obj": "model/obj",
}

// extensions inferred from canonical content types when no format token is
// available.
var contentTypeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"application/zip": ".zip",
	"model/obj":       ".obj",
}

// vendorOBJPattern matches vendor-specific OBJ content-type variants
// (e.g. "application/x-obj", "model/OBJ"); these are rewritten to the
// canonical model/obj type regardless of the format token.
var vendorOBJPattern = regexp.MustCompile(`(?i)(x-)?obj`)

// normalizeContentType resolves the final content type from the declared
// format token, falling back to the entry's own content type, then the
// caller's preferred type, then a generic binary type.
func normalizeContentType(format, entryType, preferred string) string {
	contentType := ""
	if format != "" {
		contentType = formatContentTypes[strings.ToLower(format)]
	}
	if contentType == "" {
		contentType = entryType
	}
	if contentType == "" {
		contentType = preferred
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if vendorOBJPattern.MatchString(contentType) {
		contentType = "model/obj"
	}
	return contentType
}

// fileExtension derives the artifact extension: from the format token when
// present, else from the canonical content type, else empty.
func fileExtension(format, contentType string) string {
	if format != "" {
		return "." + strings.ToLower(format)
	}
	return contentTypeExtensions[contentType]
}

// artifactFilename builds "{designId}_{exportName-or-exportKind}{ext}".
func artifactFilename(designID, exportName, exportKind, ext string) string {
	label := exportName
	if label == "" {
		label = exportKind
	}
	return fmt.Sprintf("%s_%s%s", designID, label, ext)
}
