package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContentTypeFromFormat(t *testing.T) {
	assert.Equal(t, "application/pdf", normalizeContentType("pdf", "", ""))
	assert.Equal(t, "application/pdf", normalizeContentType("PDF", "text/plain", ""))
	assert.Equal(t, "application/zip", normalizeContentType("zip", "", ""))
	assert.Equal(t, "model/obj", normalizeContentType("obj", "", ""))
}

func TestNormalizeContentTypeFallbackChain(t *testing.T) {
	// unknown format: entry type wins
	assert.Equal(t, "image/png", normalizeContentType("png-ish", "image/png", "application/pdf"))
	// no entry type: preferred wins
	assert.Equal(t, "application/pdf", normalizeContentType("", "", "application/pdf"))
	// nothing at all: generic binary
	assert.Equal(t, "application/octet-stream", normalizeContentType("", "", ""))
}

func TestNormalizeContentTypeVendorOBJ(t *testing.T) {
	assert.Equal(t, "model/obj", normalizeContentType("", "application/x-obj", ""))
	assert.Equal(t, "model/obj", normalizeContentType("", "model/OBJ", ""))
	assert.Equal(t, "model/obj", normalizeContentType("", "", "application/X-OBJ"))
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, ".pdf", fileExtension("pdf", "application/pdf"))
	assert.Equal(t, ".stl", fileExtension("STL", "application/octet-stream"))
	assert.Equal(t, ".obj", fileExtension("", "model/obj"))
	assert.Equal(t, "", fileExtension("", "application/octet-stream"))
}

func TestArtifactFilename(t *testing.T) {
	assert.Equal(t, "d1_Roof Plan.pdf", artifactFilename("d1", "Roof Plan", "download", ".pdf"))
	// no export name: fall back to the export kind
	assert.Equal(t, "d1_download.zip", artifactFilename("d1", "", "download", ".zip"))
}
