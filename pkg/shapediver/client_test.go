package shapediver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/ticket/tkt-123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sessionId": "s1",
			"parameters": map[string]any{
				"p1": map[string]any{"id": "p1", "name": "JSON Input", "type": "String"},
			},
			"exports": map[string]any{
				"e1": map[string]any{"id": "e1", "name": "Plan", "type": "download"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.Client())
	session, err := client.CreateSession(context.Background(), server.URL+"/", "tkt-123")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, server.URL, session.Endpoint)
	assert.Equal(t, "JSON Input", session.Parameters["p1"].Name)
	assert.Equal(t, "download", session.Exports["e1"].Type)
}

func TestCreateSessionMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	_, err := client.CreateSession(context.Background(), server.URL, "tkt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessionId")
}

func TestCreateSessionUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid ticket", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.Client())
	_, err := client.CreateSession(context.Background(), server.URL, "tkt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid ticket")
}

func TestComputeExport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v2/session/s1/export", r.URL.Path)

		var req ComputeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"e1"}, req.Exports)
		assert.Equal(t, "http://localhost:3000/api/data/d1", req.Parameters["p1"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"exports": map[string]any{
				"e1": map[string]any{"href": "https://cdn.example.com/blob"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.Client())
	session := &Session{ID: "s1", Endpoint: server.URL}
	result, err := client.ComputeExport(context.Background(), session,
		map[string]any{"p1": "http://localhost:3000/api/data/d1"}, "e1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/blob", result["href"])
}

func TestComputeExportMissingResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"exports": map[string]any{}})
	}))
	defer server.Close()

	client := NewClient(server.Client())
	_, err := client.ComputeExport(context.Background(), &Session{ID: "s1", Endpoint: server.URL}, nil, "e1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing export "e1"`)
}
