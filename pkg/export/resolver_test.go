package export

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wzesk/sd-export-server/pkg/cache"
	"github.com/Wzesk/sd-export-server/pkg/shapediver"
)

// fakeSessions is a scripted SessionService.
type fakeSessions struct {
	session    *shapediver.Session
	sessionErr error

	result     map[string]any
	computeErr error

	createCalls  int
	computeCalls int
	lastParams   map[string]any
	lastExportID string
}

func (f *fakeSessions) CreateSession(_ context.Context, _, _ string) (*shapediver.Session, error) {
	f.createCalls++
	return f.session, f.sessionErr
}

func (f *fakeSessions) ComputeExport(_ context.Context, _ *shapediver.Session, params map[string]any, exportID string) (map[string]any, error) {
	f.computeCalls++
	f.lastParams = params
	f.lastExportID = exportID
	return f.result, f.computeErr
}

func testSession() *shapediver.Session {
	return &shapediver.Session{
		ID: "s1",
		Parameters: map[string]shapediver.ParameterInfo{
			"p1": {ID: "p1", Name: "Seed"},
			"p2": {ID: "p2", Name: "JSON Input"},
		},
		Exports: map[string]shapediver.ExportInfo{
			"e2": {ID: "e2", Name: "Roof Plan", Type: "download"},
			"e1": {ID: "e1", Name: "Assembly", Type: "download"},
			"e3": {ID: "e3", Name: "Notify", Type: "email"},
		},
	}
}

func testConfig() Config {
	return Config{
		Ticket:          "ticket",
		DefaultEndpoint: "https://geometry.example.com",
		JSONParamName:   "JSON Input",
		PublicBaseURL:   "http://localhost:3000",
	}
}

func inlineResult(format string, data []byte) map[string]any {
	return map[string]any{
		"content": []any{
			map[string]any{
				"format":      format,
				"contentType": "application/pdf",
				"data":        base64.StdEncoding.EncodeToString(data),
			},
		},
	}
}

func TestResolveMissComputesAndCaches(t *testing.T) {
	sessions := &fakeSessions{session: testSession(), result: inlineResult("pdf", []byte("pdf-bytes"))}
	c := cache.NewMemoryCache(time.Minute)
	r := New(sessions, c, testConfig(), nil, nil)

	req := Request{DesignID: "d1", PreferredContentType: "application/pdf"}
	result, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Equal(t, []byte("pdf-bytes"), result.Bytes)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "d1_Assembly.pdf", result.Filename)

	// document URL synthesized from the public base URL into the JSON param
	assert.Equal(t, "http://localhost:3000/api/data/d1", sessions.lastParams["p2"])
	// deterministic: lowest export id matching the kind
	assert.Equal(t, "e1", sessions.lastExportID)

	// the write is async; wait for it, then the second call is a pure hit
	criteria := cache.Criteria{
		DesignID: "d1", ExportKind: "download", ContentType: "application/pdf",
	}
	require.Eventually(t, func() bool {
		_, hit, _ := c.Get(context.Background(), criteria)
		return hit
	}, time.Second, 5*time.Millisecond)

	second, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, []byte("pdf-bytes"), second.Bytes)
	assert.Equal(t, 1, sessions.createCalls)
}

func TestResolveBypassCache(t *testing.T) {
	sessions := &fakeSessions{session: testSession(), result: inlineResult("pdf", []byte("fresh"))}
	c := cache.NewMemoryCache(time.Minute)
	criteria := cache.Criteria{DesignID: "d1", ExportKind: "download", ContentType: "application/pdf"}
	require.NoError(t, c.Put(context.Background(), criteria, cache.Artifact{Bytes: []byte("stale")}))

	r := New(sessions, c, testConfig(), nil, nil)
	result, err := r.Resolve(context.Background(), Request{
		DesignID: "d1", PreferredContentType: "application/pdf", BypassCache: true,
	})
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Equal(t, []byte("fresh"), result.Bytes)
	assert.Equal(t, 1, sessions.createCalls)
}

func TestResolveNameFilter(t *testing.T) {
	sessions := &fakeSessions{session: testSession(), result: inlineResult("pdf", []byte("x"))}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{DesignID: "d1", NameContains: "roof"})
	require.NoError(t, err)
	assert.Equal(t, "e2", sessions.lastExportID)
}

func TestResolveExportNotFound(t *testing.T) {
	sessions := &fakeSessions{session: testSession()}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{
		DesignID: "d1", ExportKind: "download", NameContains: "basement",
	})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindNotFound, exErr.Kind)
	assert.Equal(t, "Export not found", exErr.Title)
	assert.Contains(t, exErr.Message, `type="download"`)
	assert.Contains(t, exErr.Message, `"basement"`)
	assert.Equal(t, 0, sessions.computeCalls)
}

func TestResolveMissingJSONParameter(t *testing.T) {
	session := testSession()
	delete(session.Parameters, "p2")
	sessions := &fakeSessions{session: session}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindConfiguration, exErr.Kind)
	assert.Contains(t, exErr.Message, "JSON Input")
}

func TestResolveSessionFailure(t *testing.T) {
	sessions := &fakeSessions{sessionErr: errors.New("boom")}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindUpstream, exErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, exErr.HTTPStatus())
	require.ErrorIs(t, err, sessions.sessionErr)
}

func TestResolveComputeFailure(t *testing.T) {
	sessions := &fakeSessions{session: testSession(), computeErr: errors.New("solver crashed")}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindUpstream, exErr.Kind)
	assert.Contains(t, exErr.Message, "export computation failed")
}

func TestResolveRemoteURLDownload(t *testing.T) {
	blob := []byte("zip-bytes")
	artifactServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(blob)
	}))
	defer artifactServer.Close()

	sessions := &fakeSessions{session: testSession(), result: map[string]any{
		"content": []any{
			map[string]any{"format": "zip", "href": artifactServer.URL + "/artifact"},
		},
	}}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	result, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, blob, result.Bytes)
	assert.Equal(t, "application/zip", result.ContentType)
	assert.Equal(t, "d1_Assembly.zip", result.Filename)
}

func TestResolveRemoteURLFailure(t *testing.T) {
	artifactServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer artifactServer.Close()

	sessions := &fakeSessions{session: testSession(), result: map[string]any{
		"content": []any{map[string]any{"href": artifactServer.URL + "/artifact"}},
	}}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindDownload, exErr.Kind)
	assert.Equal(t, http.StatusBadGateway, exErr.HTTPStatus())
}

func TestResolveNoContent(t *testing.T) {
	sessions := &fakeSessions{session: testSession(), result: map[string]any{
		"content": []any{map[string]any{"contentType": "application/pdf"}},
	}}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	_, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindContent, exErr.Kind)
}

func TestResolveResultLevelPayload(t *testing.T) {
	// no content array at all: the result object itself carries the payload
	sessions := &fakeSessions{session: testSession(), result: map[string]any{
		"format": "pdf",
		"data":   base64.StdEncoding.EncodeToString([]byte("direct")),
	}}
	r := New(sessions, cache.NewMemoryCache(0), testConfig(), nil, nil)

	result, err := r.Resolve(context.Background(), Request{DesignID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("direct"), result.Bytes)
	assert.Equal(t, "application/pdf", result.ContentType)
}

func TestResolveValidatesDesignID(t *testing.T) {
	r := New(&fakeSessions{}, cache.NewMemoryCache(0), testConfig(), nil, nil)
	_, err := r.Resolve(context.Background(), Request{})
	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, KindValidation, exErr.Kind)
}
